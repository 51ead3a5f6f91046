package photosapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"photo-feed/internal/api/respond"
	"photo-feed/internal/apperror"
	"photo-feed/internal/domain/media"
	"photo-feed/internal/domain/photos"
	"photo-feed/internal/ingest"

	"github.com/gin-gonic/gin"
)

// Multipart overhead allowed on top of the 10 MiB file limit before the body
// is cut off.
const maxUploadBody = media.DefaultMaxBytes + 1<<20

type PhotoStore interface {
	List(ctx context.Context, params photos.ListParams) (photos.Page[photos.Photo], error)
	Get(ctx context.Context, id string) (*photos.Photo, error)
	SoftDelete(ctx context.Context, id string) error
}

type Ingester interface {
	Ingest(ctx context.Context, up ingest.Upload) (*photos.Photo, error)
}

type Handler struct {
	photos PhotoStore
	ingest Ingester
}

func NewHandler(store PhotoStore, ing Ingester) *Handler {
	return &Handler{photos: store, ingest: ing}
}

// ------------------------------
// GET /photos
// ------------------------------
func (h *Handler) ListPhotos(c *gin.Context) {
	q := defaultListPhotosQuery()
	if err := c.ShouldBindQuery(&q); err != nil {
		respond.Error(c, respond.BindError(err, "limit"))
		return
	}

	page, err := h.photos.List(c.Request.Context(), q.params())
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Page(c, page)
}

// ------------------------------
// POST /photos (multipart: file, title?, description?)
// ------------------------------
func (h *Handler) UploadPhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	fh, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			respond.Error(c, apperror.New(apperror.KindPayloadTooLarge, "File too large (max 10 MB)"))
			return
		}
		respond.Error(c, apperror.Validation(apperror.FieldError{Field: "file", Message: "is required"}))
		return
	}

	f, err := fh.Open()
	if err != nil {
		respond.Error(c, apperror.Wrap(apperror.KindValidation, "Invalid file", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respond.Error(c, apperror.Wrap(apperror.KindValidation, "Invalid file", err))
		return
	}

	mimeType := media.NormalizeMIME(fh.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = media.DetectMIME(data)
	}

	photo, err := h.ingest.Ingest(c.Request.Context(), ingest.Upload{
		Filename:    fh.Filename,
		MIMEType:    mimeType,
		Size:        fh.Size,
		Data:        data,
		Title:       optionalForm(c, "title"),
		Description: optionalForm(c, "description"),
	})
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, photo)
}

// ------------------------------
// GET /photos/:id
// ------------------------------
func (h *Handler) GetPhoto(c *gin.Context) {
	photo, err := h.photos.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, photo)
}

// ------------------------------
// DELETE /photos/:id (soft delete)
// ------------------------------
func (h *Handler) DeletePhoto(c *gin.Context) {
	if err := h.photos.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Photo deleted"})
}

func optionalForm(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}
