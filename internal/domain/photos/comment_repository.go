package photos

import (
	"context"
	"fmt"
	"unicode/utf8"

	"photo-feed/internal/apperror"

	"gorm.io/gorm"
)

// CommentRepository persists comments scoped to one photo.
type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment after checking, in the same transaction, that the
// photo is active. The comment count is never touched; it is recounted on read.
func (r *CommentRepository) Create(ctx context.Context, photoID, content, authorName string) (*Comment, error) {
	if n := utf8.RuneCountInString(content); n < 1 || n > MaxCommentLength {
		return nil, apperror.Validation(apperror.FieldError{
			Field:   "content",
			Message: fmt.Sprintf("must be between 1 and %d characters", MaxCommentLength),
		})
	}

	c := Comment{
		PhotoID:    photoID,
		Content:    content,
		AuthorName: AuthorOrAnonymous(authorName),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActivePhoto(tx, photoID); err != nil {
			return err
		}
		if err := tx.Create(&c).Error; err != nil {
			return apperror.Wrap(apperror.KindPersistence, "Failed to add comment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List pages a photo's active comments newest first. An absent or deleted
// photo is reported before any cursor problem.
func (r *CommentRepository) List(ctx context.Context, photoID, cursor string, limit int) (Page[Comment], error) {
	db := r.db.WithContext(ctx)
	if err := requireActivePhoto(db, photoID); err != nil {
		return Page[Comment]{}, err
	}

	if limit == 0 {
		limit = DefaultCommentLimit
	}
	var errs []apperror.FieldError
	if limit < 1 || limit > MaxCommentLimit {
		errs = append(errs, apperror.FieldError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxCommentLimit)})
	}
	if cursor != "" && !validID(cursor) {
		errs = append(errs, apperror.FieldError{Field: "cursor", Message: "must be a comment id"})
	}
	if len(errs) > 0 {
		return Page[Comment]{}, apperror.Validation(errs...)
	}

	q := activeComments(db, photoID)
	if cursor != "" {
		var exists int64
		if err := activeComments(db, photoID).Where("comments.id = ?", cursor).Count(&exists).Error; err != nil {
			return Page[Comment]{}, apperror.Wrap(apperror.KindInternal, "Failed to fetch comments", err)
		}
		if exists == 0 {
			return Page[Comment]{}, apperror.Validation(apperror.FieldError{Field: "cursor", Message: "does not reference an active comment of this photo"})
		}
		q = q.Where(keyset("comments.created_at", commentCreatedAtOfSQL, "comments.id", true), cursor, cursor, cursor)
	}

	var rows []Comment
	err := q.Order("comments.created_at DESC, comments.id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return Page[Comment]{}, apperror.Wrap(apperror.KindInternal, "Failed to fetch comments", err)
	}
	return paginate(rows, limit, func(c Comment) string { return c.ID }), nil
}
