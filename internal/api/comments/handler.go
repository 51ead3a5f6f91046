package commentsapi

import (
	"context"
	"net/http"

	"photo-feed/internal/api/respond"
	"photo-feed/internal/domain/photos"

	"github.com/gin-gonic/gin"
)

type CommentStore interface {
	Create(ctx context.Context, photoID, content, authorName string) (*photos.Comment, error)
	List(ctx context.Context, photoID, cursor string, limit int) (photos.Page[photos.Comment], error)
}

type Handler struct {
	comments CommentStore
}

func NewHandler(store CommentStore) *Handler {
	return &Handler{comments: store}
}

type CreateCommentInput struct {
	Content    string `json:"content" binding:"required,min=1,max=1000"`
	AuthorName string `json:"authorName"`
}

type ListCommentsQuery struct {
	Cursor string `form:"cursor" binding:"omitempty,uuid"`
	Limit  int    `form:"limit" binding:"min=1,max=100"`
}

// ------------------------------
// POST /photos/:id/comments
// ------------------------------
func (h *Handler) CreateComment(c *gin.Context) {
	var in CreateCommentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, respond.BindError(err, "content"))
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), c.Param("id"), in.Content, in.AuthorName)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// ------------------------------
// GET /photos/:id/comments
// ------------------------------
func (h *Handler) ListComments(c *gin.Context) {
	q := ListCommentsQuery{Limit: photos.DefaultCommentLimit}
	if err := c.ShouldBindQuery(&q); err != nil {
		respond.Error(c, respond.BindError(err, "limit"))
		return
	}

	page, err := h.comments.List(c.Request.Context(), c.Param("id"), q.Cursor, q.Limit)
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.Page(c, page)
}
