package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"excel-import-service/internal/pkg/config"
)

// NewRouter assembles the HTTP API. All import routes sit behind basic auth;
// only the health probe is open.
func NewRouter(cfg *config.Config, handler *ImportHandler, auth Authenticator, logger *slog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authorized := router.Group("/", BasicAuth(auth, logger))
	authorized.POST("/upload-excel", handler.UploadExcel)
	authorized.GET("/import-progress/:key", handler.GetProgress)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
