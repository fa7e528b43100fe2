package controllers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/middleware"
	"classdrive/models"
	"classdrive/services"
	"classdrive/utils"
)

type ShareController struct {
	shares *services.ShareService
}

func NewShareController(shares *services.ShareService) *ShareController {
	return &ShareController{shares: shares}
}

type shareItemRequest struct {
	GranteeID string `json:"grantee_id" binding:"required"`
	Level     string `json:"level" binding:"required,oneof=VIEWER EDITOR"`
}

func (ctrl *ShareController) ShareItem(c *gin.Context) {
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

	var req shareItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}
	granteeID, err := primitive.ObjectIDFromHex(req.GranteeID)
	if err != nil {
		utils.BadRequestResponse(c, "invalid grantee ID", nil)
		return
	}

	detail, svcErr := ctrl.shares.Share(c.Request.Context(), principal, itemID, granteeID, models.ShareLevel(req.Level))
	if svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	utils.CreatedResponse(c, "item shared", detail)
}

func (ctrl *ShareController) UnshareItem(c *gin.Context) {
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
	granteeID, err := primitive.ObjectIDFromHex(c.Param("granteeId"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid grantee ID", nil)
		return
	}

	if svcErr := ctrl.shares.Unshare(c.Request.Context(), principal, itemID, granteeID); svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	utils.SuccessResponse(c, "share removed", nil)
}

func (ctrl *ShareController) ListItemShares(c *gin.Context) {
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

	details, svcErr := ctrl.shares.ListForItem(c.Request.Context(), principal, itemID)
	if svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	utils.SuccessResponse(c, "shares fetched", details)
}

func (ctrl *ShareController) SharedWithMe(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.UnauthorizedResponse(c, "authentication required")
		return
	}

	shared, svcErr := ctrl.shares.ListForGrantee(c.Request.Context(), principal)
	if svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	utils.SuccessResponse(c, "shared items fetched", shared)
}
