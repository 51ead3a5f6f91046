package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT      string
	DB_DRIVER string
	DB_URL    string
	GIN_MODE  string

	CORS_ORIGIN string

	STORAGE_DRIVER     string
	UPLOAD_FOLDER      string
	MEDIA_DIR          string
	MEDIA_BASE_URL     string
	S3_BUCKET          string
	S3_REGION          string
	S3_ENDPOINT        string
	S3_PUBLIC_BASE_URL string

	LOG_LEVEL  string
	LOG_FORMAT string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_DRIVER = getEnv("DB_DRIVER", "postgres")
	DB_URL = mustEnv("DB_URL")
	GIN_MODE = getEnv("GIN_MODE", "debug")

	CORS_ORIGIN = getEnv("CORS_ORIGIN", "*")

	STORAGE_DRIVER = getEnv("STORAGE_DRIVER", "local")
	UPLOAD_FOLDER = getEnv("UPLOAD_FOLDER", "photos")
	MEDIA_DIR = getEnv("MEDIA_DIR", "./media")
	MEDIA_BASE_URL = getEnv("MEDIA_BASE_URL", "http://localhost:"+PORT+"/media")

	if STORAGE_DRIVER == "s3" {
		S3_BUCKET = mustEnv("S3_BUCKET")
		S3_REGION = mustEnv("S3_REGION")
	}
	S3_ENDPOINT = getEnv("S3_ENDPOINT", "")
	S3_PUBLIC_BASE_URL = getEnv("S3_PUBLIC_BASE_URL", "")

	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
	LOG_FORMAT = getEnv("LOG_FORMAT", "console")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
