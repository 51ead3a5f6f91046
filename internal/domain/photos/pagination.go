package photos

import (
	"fmt"

	"photo-feed/internal/apperror"
)

const (
	DefaultPhotoLimit   = 12
	MaxPhotoLimit       = 50
	DefaultCommentLimit = 20
	MaxCommentLimit     = 100
	PreviewSize         = 3
)

type SortKey string

const (
	SortByCreatedAt    SortKey = "createdAt"
	SortByCommentCount SortKey = "commentCount"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ListParams selects one feed page. Zero values mean the defaults.
type ListParams struct {
	Cursor string
	Limit  int
	SortBy SortKey
	Order  SortOrder
}

func (p ListParams) withDefaults() ListParams {
	if p.Limit == 0 {
		p.Limit = DefaultPhotoLimit
	}
	if p.SortBy == "" {
		p.SortBy = SortByCreatedAt
	}
	if p.Order == "" {
		p.Order = OrderDesc
	}
	return p
}

func (p ListParams) validate() []apperror.FieldError {
	var errs []apperror.FieldError
	if p.Limit < 1 || p.Limit > MaxPhotoLimit {
		errs = append(errs, apperror.FieldError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxPhotoLimit)})
	}
	if p.SortBy != SortByCreatedAt && p.SortBy != SortByCommentCount {
		errs = append(errs, apperror.FieldError{Field: "sortBy", Message: "must be one of createdAt, commentCount"})
	}
	if p.Order != OrderAsc && p.Order != OrderDesc {
		errs = append(errs, apperror.FieldError{Field: "order", Message: "must be one of asc, desc"})
	}
	if p.Cursor != "" && !validID(p.Cursor) {
		errs = append(errs, apperror.FieldError{Field: "cursor", Message: "must be a photo id"})
	}
	return errs
}

// Page is one keyset page. NextCursor is the id of the last row in Data.
type Page[T any] struct {
	Data        []T
	NextCursor  *string
	HasNextPage bool
	Limit       int
}

// paginate trims the look-ahead row fetched with limit+1.
func paginate[T any](rows []T, limit int, id func(T) string) Page[T] {
	page := Page[T]{Data: rows, Limit: limit}
	if len(rows) > limit {
		page.Data = rows[:limit]
		page.HasNextPage = true
		next := id(page.Data[len(page.Data)-1])
		page.NextCursor = &next
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return page
}

// keyset returns the WHERE clause resuming strictly after the cursor row in
// the (sortExpr, id) order, with id as the tie-break in the same direction.
func keyset(sortExpr, cursorExpr, idColumn string, desc bool) string {
	cmp := ">"
	if desc {
		cmp = "<"
	}
	return fmt.Sprintf("((%[1]s %[2]s %[3]s) OR (%[1]s = %[3]s AND %[4]s %[2]s ?))", sortExpr, cmp, cursorExpr, idColumn)
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}
