package photos

import (
	"errors"

	"photo-feed/internal/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Every read path goes through these helpers so none can skip the
// soft-delete filter. Model-based queries get it from gorm.DeletedAt; the raw
// fragments below spell it out.

const activeComment = "comments.deleted_at IS NULL"

// commentCountSQL counts active comments of the photo row in scope.
const commentCountSQL = "(SELECT COUNT(*) FROM comments WHERE comments.photo_id = photos.id AND " + activeComment + ")"

// commentCountOfSQL counts active comments of the photo given as argument.
const commentCountOfSQL = "(SELECT COUNT(*) FROM comments WHERE comments.photo_id = ? AND " + activeComment + ")"

const photoCreatedAtOfSQL = "(SELECT cp.created_at FROM photos cp WHERE cp.id = ?)"

const commentCreatedAtOfSQL = "(SELECT cc.created_at FROM comments cc WHERE cc.id = ?)"

const recentCommentsSQL = `SELECT * FROM (
	SELECT comments.*, ROW_NUMBER() OVER (
		PARTITION BY comments.photo_id ORDER BY comments.created_at DESC, comments.id DESC
	) AS preview_rank
	FROM comments
	WHERE comments.photo_id IN ? AND ` + activeComment + `
) ranked
WHERE ranked.preview_rank <= ?
ORDER BY ranked.photo_id, ranked.created_at DESC, ranked.id DESC`

func activePhotos(db *gorm.DB) *gorm.DB {
	return db.Model(&Photo{})
}

func activePhotosWithCount(db *gorm.DB) *gorm.DB {
	return activePhotos(db).Select("photos.*, " + commentCountSQL + " AS comment_count")
}

func activeComments(db *gorm.DB, photoID string) *gorm.DB {
	return db.Model(&Comment{}).Where("comments.photo_id = ?", photoID)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// requireActivePhoto returns NotFound for both absent and soft-deleted photos.
func requireActivePhoto(db *gorm.DB, id string) error {
	if !validID(id) {
		return apperror.NotFound("Photo")
	}
	var p Photo
	err := activePhotos(db).Select("photos.id").Where("photos.id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("Photo")
	}
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, "Failed to fetch photo", err)
	}
	return nil
}
