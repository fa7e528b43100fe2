package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"classdrive/middleware"
	"classdrive/models"
	"classdrive/services"
	"classdrive/utils"
)

type SearchController struct {
	search *services.SearchService
}

func NewSearchController(search *services.SearchService) *SearchController {
	return &SearchController{search: search}
}

func (ctrl *SearchController) SearchItems(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "authentication required")
		return
	}

	ownerID, err := parseOptionalObjectID(c.Query("owner_id"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid owner ID", nil)
		return
	}
	parentValue, parentPresent := c.GetQuery("parent_id")
	parent, err := parseOptionalParent(parentValue, parentPresent)
	if err != nil {
		utils.BadRequestResponse(c, "invalid parent ID", nil)
		return
	}

	filters := services.SearchFilters{
		Query:    c.Query("q"),
		Kind:     models.ItemKind(c.Query("kind")),
		MimeType: c.Query("mime_type"),
		OwnerID:  ownerID,
		Parent:   parent,
		Limit:    parseInt64Query(c, "limit", 0),
		Offset:   parseInt64Query(c, "offset", 0),
	}

	page, svcErr := ctrl.search.Search(c.Request.Context(), principal, filters)
	if svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	respondWithPage(c, page)
}

func (ctrl *SearchController) SearchByContent(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "authentication required")
		return
	}

	page, svcErr := ctrl.search.SearchByContent(c.Request.Context(), principal, c.Query("q"),
		parseInt64Query(c, "limit", 0), parseInt64Query(c, "offset", 0))
	if svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	respondWithPage(c, page)
}

func (ctrl *SearchController) RecentItems(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "authentication required")
		return
	}

	results, svcErr := ctrl.search.Recent(c.Request.Context(), principal, parseInt64Query(c, "limit", 0))
	if svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	utils.SuccessResponse(c, "recent items fetched", results)
}

func respondWithPage(c *gin.Context, page *services.SearchPage) {
	utils.SuccessResponse(c, "search complete", gin.H{
		"items": page.Items,
		"pagination": utils.Pagination{
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore,
		},
	})
}

func parseInt64Query(c *gin.Context, key string, fallback int64) int64 {
	value := c.Query(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
