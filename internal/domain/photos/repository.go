package photos

import (
	"context"
	"errors"

	"photo-feed/internal/apperror"

	"gorm.io/gorm"
)

// PhotoRepository persists photos and serves the keyset-paginated feed.
type PhotoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts p in a single write.
func (r *PhotoRepository) Create(ctx context.Context, p *Photo) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return apperror.Wrap(apperror.KindPersistence, "Failed to save photo", err)
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	return nil
}

// List returns one page of active photos, each with its newest comments and
// live comment count. Rows are ordered by (sort key, id) so that equal comment
// counts still page deterministically.
func (r *PhotoRepository) List(ctx context.Context, params ListParams) (Page[Photo], error) {
	p := params.withDefaults()
	if errs := p.validate(); len(errs) > 0 {
		return Page[Photo]{}, apperror.Validation(errs...)
	}
	db := r.db.WithContext(ctx)
	desc := p.Order == OrderDesc

	sortExpr, cursorExpr, orderExpr := "photos.created_at", photoCreatedAtOfSQL, "photos.created_at"
	if p.SortBy == SortByCommentCount {
		sortExpr, cursorExpr, orderExpr = commentCountSQL, commentCountOfSQL, "comment_count"
	}

	q := activePhotosWithCount(db)
	if p.Cursor != "" {
		if err := requireActivePhoto(db, p.Cursor); err != nil {
			if apperror.Is(err, apperror.KindNotFound) {
				return Page[Photo]{}, apperror.Validation(apperror.FieldError{Field: "cursor", Message: "does not reference an active photo"})
			}
			return Page[Photo]{}, err
		}
		q = q.Where(keyset(sortExpr, cursorExpr, "photos.id", desc), p.Cursor, p.Cursor, p.Cursor)
	}

	var rows []Photo
	err := q.Order(orderExpr + " " + direction(desc) + ", photos.id " + direction(desc)).
		Limit(p.Limit + 1).
		Find(&rows).Error
	if err != nil {
		return Page[Photo]{}, apperror.Wrap(apperror.KindInternal, "Failed to fetch photos", err)
	}

	page := paginate(rows, p.Limit, func(ph Photo) string { return ph.ID })
	if err := r.attachPreviews(db, page.Data); err != nil {
		return Page[Photo]{}, err
	}
	return page, nil
}

// attachPreviews loads up to PreviewSize newest active comments per photo in
// one query.
func (r *PhotoRepository) attachPreviews(db *gorm.DB, list []Photo) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].ID
		list[i].Comments = []Comment{}
	}

	var recent []Comment
	if err := db.Raw(recentCommentsSQL, ids, PreviewSize).Scan(&recent).Error; err != nil {
		return apperror.Wrap(apperror.KindInternal, "Failed to fetch comments", err)
	}

	byPhoto := make(map[string][]Comment, len(list))
	for _, c := range recent {
		byPhoto[c.PhotoID] = append(byPhoto[c.PhotoID], c)
	}
	for i := range list {
		if cs, ok := byPhoto[list[i].ID]; ok {
			list[i].Comments = cs
		}
	}
	return nil
}

// Get returns an active photo with all of its active comments, newest first.
func (r *PhotoRepository) Get(ctx context.Context, id string) (*Photo, error) {
	if !validID(id) {
		return nil, apperror.NotFound("Photo")
	}
	var p Photo
	err := activePhotosWithCount(r.db.WithContext(ctx)).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at DESC, comments.id DESC")
		}).
		Where("photos.id = ?", id).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("Photo")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to fetch photo", err)
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	return &p, nil
}

// SoftDelete stamps deleted_at. The row stays in storage.
func (r *PhotoRepository) SoftDelete(ctx context.Context, id string) error {
	if !validID(id) {
		return apperror.NotFound("Photo")
	}
	res := r.db.WithContext(ctx).Delete(&Photo{}, "id = ?", id)
	if res.Error != nil {
		return apperror.Wrap(apperror.KindPersistence, "Failed to delete photo", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("Photo")
	}
	return nil
}

// FindUnscoped loads a photo regardless of its soft-delete state. Internal
// inspection only; never exposed over HTTP.
func (r *PhotoRepository) FindUnscoped(ctx context.Context, id string) (*Photo, error) {
	var p Photo
	err := r.db.WithContext(ctx).Unscoped().Take(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("Photo")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "Failed to fetch photo", err)
	}
	return &p, nil
}
