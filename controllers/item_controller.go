package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/middleware"
	"classdrive/models"
	"classdrive/repository"
	"classdrive/services"
	"classdrive/storage"
	"classdrive/utils"
)

type ItemController struct {
	items       *services.ItemService
	blobs       storage.BlobStore
	maxFileSize int64
}

func NewItemController(items *services.ItemService, blobs storage.BlobStore, maxFileSize int64) *ItemController {
	return &ItemController{items: items, blobs: blobs, maxFileSize: maxFileSize}
}

type createItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Kind     string `json:"kind" binding:"required,oneof=FILE FOLDER"`
	ParentID string `json:"parent_id"`
}

// OptionalID distinguishes a JSON field that is absent from one that is
// explicitly null: absent leaves placement unchanged, null detaches to
// root, a string re-attaches.
type OptionalID struct {
	Set   bool
	Value *string
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

type updateItemRequest struct {
	Name     *string    `json:"name"`
	ParentID OptionalID `json:"parent_id"`
}

// CreateItem handles both folder creation (JSON) and file upload
// (multipart with a "file" part).
func (ctrl *ItemController) CreateItem(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "authentication required")
		return
	}

	if fileHeader, err := c.FormFile("file"); err == nil {
		if ctrl.maxFileSize > 0 && fileHeader.Size > ctrl.maxFileSize {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the maximum size of %d bytes", ctrl.maxFileSize), nil)
			return
		}

		name := c.PostForm("name")
		if name == "" {
			name = fileHeader.Filename
		}
		parentID, parseErr := parseOptionalObjectID(c.PostForm("parent_id"))
		if parseErr != nil {
			utils.BadRequestResponse(c, "invalid parent ID", nil)
			return
		}

		file, openErr := fileHeader.Open()
		if openErr != nil {
			utils.BadRequestResponse(c, "failed to read uploaded file", nil)
			return
		}
		defer file.Close()

		item, err := ctrl.items.CreateFile(c.Request.Context(), principal, services.CreateFileInput{
			Name:     name,
			ParentID: parentID,
			MimeType: fileHeader.Header.Get("Content-Type"),
			Category: models.DocumentCategory(c.PostForm("category")),
		}, file)
		if err != nil {
			utils.FromError(c, err)
			return
		}
		utils.CreatedResponse(c, "file uploaded", item)
		return
	}

	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}
	parentID, err := parseOptionalObjectID(req.ParentID)
	if err != nil {
		utils.BadRequestResponse(c, "invalid parent ID", nil)
		return
	}

	item, svcErr := ctrl.items.Create(c.Request.Context(), principal, services.CreateItemInput{
		Name:     req.Name,
		Kind:     models.ItemKind(req.Kind),
		ParentID: parentID,
	})
	if svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	utils.CreatedResponse(c, "item created", item)
}

func (ctrl *ItemController) GetItem(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "authentication required")
		return
	}
	itemID, err := primitive.ObjectIDFromHex(c.Param("itemId"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid item ID", nil)
		return
	}

	detail, svcErr := ctrl.items.Get(c.Request.Context(), principal, itemID)
	if svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	utils.SuccessResponse(c, "item fetched", detail)
}

func (ctrl *ItemController) ListItems(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "authentication required")
		return
	}
	parentID, err := parseOptionalObjectID(c.Query("parent_id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid parent ID", nil)
		return
	}

	details, svcErr := ctrl.items.List(c.Request.Context(), principal, parentID)
	if svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	utils.SuccessResponse(c, "items fetched", details)
}

func (ctrl *ItemController) UpdateItem(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "authentication required")
		return
	}
	itemID, err := primitive.ObjectIDFromHex(c.Param("itemId"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid item ID", nil)
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	input := services.UpdateItemInput{Name: req.Name}
	if req.ParentID.Set {
		input.Parent.Set = true
		if req.ParentID.Value != nil {
			parentID, parseErr := primitive.ObjectIDFromHex(*req.ParentID.Value)
			if parseErr != nil {
				utils.BadRequestResponse(c, "invalid parent ID", nil)
				return
			}
			input.Parent.ID = &parentID
		}
	}

	detail, svcErr := ctrl.items.Update(c.Request.Context(), principal, itemID, input)
	if svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	utils.SuccessResponse(c, "item updated", detail)
}

func (ctrl *ItemController) DeleteItem(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "authentication required")
		return
	}
	itemID, err := primitive.ObjectIDFromHex(c.Param("itemId"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid item ID", nil)
		return
	}

	if svcErr := ctrl.items.Delete(c.Request.Context(), principal, itemID); svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	utils.SuccessResponse(c, "item deleted", nil)
}

// DownloadItem resolves the descriptor, then streams the bytes straight
// from the blob store.
func (ctrl *ItemController) DownloadItem(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "authentication required")
		return
	}
	itemID, err := primitive.ObjectIDFromHex(c.Param("itemId"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid item ID", nil)
		return
	}

	descriptor, svcErr := ctrl.items.Download(c.Request.Context(), principal, itemID)
	if svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}

	reader, openErr := ctrl.blobs.Open(c.Request.Context(), descriptor.StorageKey)
	if openErr != nil {
		utils.LogError("failed to open blob for download", openErr)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to stream file", nil)
		return
	}
	defer reader.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", descriptor.Name),
	}
	c.DataFromReader(http.StatusOK, descriptor.Size, descriptor.MimeType, reader, headers)
}

func parseOptionalObjectID(value string) (*primitive.ObjectID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseOptionalParent(value string, present bool) (repository.ParentFilter, error) {
	if !present {
		return repository.ParentFilter{}, nil
	}
	id, err := parseOptionalObjectID(value)
	if err != nil {
		return repository.ParentFilter{}, err
	}
	return repository.ParentFilter{Set: true, ID: id}, nil
}
