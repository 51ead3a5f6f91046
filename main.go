package main

import (
	"context"
	"strings"
	"time"

	"photo-feed/config"
	"photo-feed/database"
	routes "photo-feed/internal/app/http"
	"photo-feed/internal/domain/media"
	"photo-feed/internal/domain/photos"
	"photo-feed/internal/infra/objectstore"
	"photo-feed/internal/ingest"
	"photo-feed/internal/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	config.LoadEnv()
	logging.Setup(config.LOG_LEVEL, config.LOG_FORMAT)
	gin.SetMode(config.GIN_MODE)

	database.InitDB(config.DB_DRIVER, config.DB_URL)

	store, mediaDir := newStore()

	photoRepo := photos.NewPhotoRepository(database.DB)
	orchestrator, err := ingest.New(ingest.Dependencies{
		Transcoder: media.NewTranscoder(),
		Store:      store,
		Photos:     photoRepo,
		Folder:     config.UPLOAD_FOLDER,
		Metrics:    ingest.DefaultMetrics(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to build ingest pipeline")
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger())

	// ✅ Add CORS middleware BEFORE registering routes
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(config.CORS_ORIGIN, ","),
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: config.CORS_ORIGIN != "*",
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Dependencies{
		Photos:   photoRepo,
		Comments: photos.NewCommentRepository(database.DB),
		Ingester: orchestrator,
		MediaDir: mediaDir,
	})

	log.Info().Str("port", config.PORT).Str("storage", config.STORAGE_DRIVER).Msg("🚀 Listening")
	if err := r.Run(":" + config.PORT); err != nil {
		log.Fatal().Err(err).Msg("❌ Server stopped")
	}
}

// newStore returns the configured object store and, for the local backend,
// the directory to serve at /media.
func newStore() (objectstore.Store, string) {
	switch config.STORAGE_DRIVER {
	case "s3":
		store, err := objectstore.NewS3Store(context.Background(), objectstore.S3Config{
			Bucket:        config.S3_BUCKET,
			Region:        config.S3_REGION,
			Endpoint:      config.S3_ENDPOINT,
			PublicBaseURL: config.S3_PUBLIC_BASE_URL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("❌ Failed to configure S3 store")
		}
		return store, ""
	case "local":
		store, err := objectstore.NewLocalStore(config.MEDIA_DIR, config.MEDIA_BASE_URL)
		if err != nil {
			log.Fatal().Err(err).Msg("❌ Failed to prepare media directory")
		}
		return store, config.MEDIA_DIR
	default:
		log.Fatal().Str("driver", config.STORAGE_DRIVER).Msg("❌ Unsupported STORAGE_DRIVER")
		return nil, ""
	}
}
