package routes

import (
	commentsapi "photo-feed/internal/api/comments"
	photosapi "photo-feed/internal/api/photos"
	"photo-feed/internal/api/respond"
	"photo-feed/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Dependencies struct {
	Photos   photosapi.PhotoStore
	Comments commentsapi.CommentStore
	Ingester photosapi.Ingester

	// MediaDir is served at /media when objects are stored on local disk.
	MediaDir string
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
}

func RegisterRoutes(r *gin.Engine, deps Dependencies) {
	respond.UseTagFieldNames()

	photoHandler := photosapi.NewHandler(deps.Photos, deps.Ingester)
	commentHandler := commentsapi.NewHandler(deps.Comments)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if deps.MediaDir != "" {
		r.Static("/media", deps.MediaDir)
	}

	r.GET("/photos", photoHandler.ListPhotos)
	r.POST("/photos", photoHandler.UploadPhoto)
	r.GET("/photos/:id", photoHandler.GetPhoto)
	r.DELETE("/photos/:id", photoHandler.DeletePhoto)

	r.GET("/photos/:id/comments", commentHandler.ListComments)

	// ✅ Comment text is user supplied; strip markup before binding
	sanitized := r.Group("/")
	sanitized.Use(middleware.SanitizeJSONStrings())
	sanitized.POST("/photos/:id/comments", commentHandler.CreateComment)
}
