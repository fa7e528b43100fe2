package controllers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"classdrive/models"
	"classdrive/services"
	"classdrive/utils"
)

type AdminController struct {
	admin *services.AdminService
}

func NewAdminController(admin *services.AdminService) *AdminController {
	return &AdminController{admin: admin}
}

func (ctrl *AdminController) Dashboard(c *gin.Context) {
	stats, err := ctrl.admin.DashboardStats(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.SuccessResponse(c, "dashboard stats fetched", stats)
}

func (ctrl *AdminController) ListUsers(c *gin.Context) {
	limit := parseInt64Query(c, "limit", 0)
	offset := parseInt64Query(c, "offset", 0)

	users, total, err := ctrl.admin.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		utils.FromError(c, err)
		return
	}

	if limit <= 0 {
		limit = 20
	}
	utils.SuccessResponse(c, "users fetched", gin.H{
		"users": users,
		"pagination": utils.Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: total > offset+limit,
		},
	})
}

type updateUserRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=ADMIN TEACHER STUDENT"`
}

func (ctrl *AdminController) UpdateUserRole(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		utils.BadRequestResponse(c, "invalid user ID", nil)
		return
	}

	var req updateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "invalid request body", err.Error())
		return
	}

	if svcErr := ctrl.admin.UpdateUserRole(c.Request.Context(), userID, models.UserRole(req.Role)); svcErr != nil {
		utils.FromError(c, svcErr)
		return
	}
	utils.SuccessResponse(c, "user role updated", nil)
}
