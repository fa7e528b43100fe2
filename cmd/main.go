package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"classdrive/config"
	"classdrive/controllers"
	"classdrive/repository"
	"classdrive/routes"
	"classdrive/services"
	"classdrive/storage"
	"classdrive/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		utils.InitLogger("development")
		utils.LogFatal("invalid configuration", err)
	}

	utils.InitLogger(cfg.Env)
	utils.LogInfo("starting classdrive: " + cfg.Describe())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		utils.LogFatal("failed to connect to MongoDB", err)
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			utils.LogError("error disconnecting from MongoDB", err)
		}
	}()

	if err := client.Ping(ctx, nil); err != nil {
		utils.LogFatal("failed to ping MongoDB", err)
	}
	utils.LogInfo("connected to MongoDB: " + cfg.DatabaseName)

	repos := repository.New(client.Database(cfg.DatabaseName))

	blobs, err := storage.NewB2Store(ctx, cfg.B2ApplicationKeyID, cfg.B2ApplicationKey, cfg.B2BucketName)
	if err != nil {
		utils.LogFatal("failed to initialize B2 storage", err)
	}

	accessService := services.NewAccessService(repos.Items, repos.Grants)
	itemService := services.NewItemService(repos, accessService, blobs)
	shareService := services.NewShareService(repos)
	searchService := services.NewSearchService(repos)
	adminService := services.NewAdminService(repos)

	ctrl := routes.Controllers{
		Items:  controllers.NewItemController(itemService, blobs, cfg.MaxFileSize),
		Shares: controllers.NewShareController(shareService),
		Search: controllers.NewSearchController(searchService),
		Admin:  controllers.NewAdminController(adminService),
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	routes.Setup(router.Group("/api"), ctrl, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		utils.LogInfo("server listening on port " + cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.LogFatal("server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.LogInfo("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError("forced shutdown", err)
	}
	utils.LogInfo("server stopped")
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
