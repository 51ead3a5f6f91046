// Package feedclient talks to the photo feed API and keeps an in-memory,
// optimistically updated copy of the infinite feed queries.
package feedclient

import (
	"fmt"
	"strings"
	"time"
)

// ProvisionalPrefix marks comment ids minted locally before the server
// answered.
const ProvisionalPrefix = "temp-"

const (
	AnonymousAuthor = "Anonymous"
	PreviewSize     = 3
)

type Comment struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	AuthorName string    `json:"authorName"`
	PhotoID    string    `json:"photoId"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Photo struct {
	ID           string    `json:"id"`
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	ImageURL     string    `json:"imageUrl"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	FileSize     int64     `json:"fileSize"`
	MIMEType     string    `json:"mimeType"`
	Width        *int      `json:"width"`
	Height       *int      `json:"height"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Comments     []Comment `json:"comments"`
	CommentCount int64     `json:"commentCount"`
}

func (p Photo) clone() Photo {
	p.Comments = cloneComments(p.Comments)
	return p
}

type Pagination struct {
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
	Limit       int     `json:"limit"`
}

type Page struct {
	Data       []Photo    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func (p Page) clone() Page {
	data := make([]Photo, len(p.Data))
	for i := range p.Data {
		data[i] = p.Data[i].clone()
	}
	p.Data = data
	return p
}

type ListParams struct {
	Cursor string
	Limit  int
	SortBy string
	Order  string
}

// QueryKey identifies one infinite feed query.
type QueryKey struct {
	SortBy string
	Order  string
}

func (k QueryKey) String() string {
	return k.SortBy + ":" + k.Order
}

type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	Title       string
	Description string
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int          `json:"-"`
	Message string       `json:"error"`
	Kind    string       `json:"kind"`
	Stage   string       `json:"stage,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s: %s", e.Status, e.Kind, e.Message)
	for _, d := range e.Details {
		fmt.Fprintf(&b, "; %s %s", d.Field, d.Message)
	}
	return b.String()
}

// IsProvisional reports whether id was minted locally for an optimistic
// comment.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}
