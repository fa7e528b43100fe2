package routes

import (
	"github.com/gin-gonic/gin"

	"classdrive/controllers"
	"classdrive/middleware"
)

type Controllers struct {
	Items  *controllers.ItemController
	Shares *controllers.ShareController
	Search *controllers.SearchController
	Admin  *controllers.AdminController
}

// Setup mounts the API under the given group. Every route requires a
// verified principal; admin routes additionally require the ADMIN role.
func Setup(api *gin.RouterGroup, ctrl Controllers, jwtSecret string) {
	api.Use(middleware.AuthMiddleware(jwtSecret))

	items := api.Group("/items")
	{
		items.POST("", ctrl.Items.CreateItem)
		items.GET("", ctrl.Items.ListItems)
		items.GET("/:itemId", ctrl.Items.GetItem)
		items.GET("/:itemId/download", ctrl.Items.DownloadItem)
		items.PUT("/:itemId", ctrl.Items.UpdateItem)
		items.DELETE("/:itemId", ctrl.Items.DeleteItem)
	}

	sharing := api.Group("/sharing")
	{
		sharing.GET("/shared-with-me", ctrl.Shares.SharedWithMe)
		sharing.POST("/:itemId/shares", ctrl.Shares.ShareItem)
		sharing.GET("/:itemId/shares", ctrl.Shares.ListItemShares)
		sharing.DELETE("/:itemId/shares/:granteeId", ctrl.Shares.UnshareItem)
	}

	search := api.Group("/search")
	{
		search.GET("", ctrl.Search.SearchItems)
		search.GET("/content", ctrl.Search.SearchByContent)
		search.GET("/recent", ctrl.Search.RecentItems)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/dashboard", ctrl.Admin.Dashboard)
		admin.GET("/users", ctrl.Admin.ListUsers)
		admin.PUT("/users/:userId/role", ctrl.Admin.UpdateUserRole)
	}
}
