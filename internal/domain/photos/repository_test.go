package photos_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"photo-feed/database"
	"photo-feed/internal/apperror"
	"photo-feed/internal/domain/photos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newPhoto(t *testing.T, repo *photos.PhotoRepository, title string) *photos.Photo {
	t.Helper()
	w, h := 800, 600
	p := &photos.Photo{
		Title:        &title,
		ImageURL:     "https://cdn.test/photos/" + title + ".jpg",
		ThumbnailURL: "https://cdn.test/photos/" + title + "_thumb.jpg",
		FileSize:     1234,
		MIMEType:     "image/jpeg",
		Width:        &w,
		Height:       &h,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

type fixture struct {
	db       *gorm.DB
	photos   *photos.PhotoRepository
	comments *photos.CommentRepository
}

func newFixture(t *testing.T) fixture {
	db := openTestDB(t)
	return fixture{db: db, photos: photos.NewPhotoRepository(db), comments: photos.NewCommentRepository(db)}
}

func (f fixture) addComments(t *testing.T, photoID string, n int) []*photos.Comment {
	t.Helper()
	out := make([]*photos.Comment, 0, n)
	for i := 0; i < n; i++ {
		c, err := f.comments.Create(context.Background(), photoID, fmt.Sprintf("comment %d", i), "tester")
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func collectFeed(t *testing.T, repo *photos.PhotoRepository, params photos.ListParams) []photos.Photo {
	t.Helper()
	var all []photos.Photo
	for guard := 0; guard < 1000; guard++ {
		page, err := repo.List(context.Background(), params)
		require.NoError(t, err)
		all = append(all, page.Data...)
		if !page.HasNextPage {
			assert.Nil(t, page.NextCursor)
			return all
		}
		require.NotNil(t, page.NextCursor)
		assert.Equal(t, page.Data[len(page.Data)-1].ID, *page.NextCursor)
		params.Cursor = *page.NextCursor
	}
	t.Fatal("pagination did not terminate")
	return nil
}

func TestListPhotosVisitsEveryPhotoExactlyOnce(t *testing.T) {
	f := newFixture(t)
	const total = 23
	for i := 0; i < total; i++ {
		p := newPhoto(t, f.photos, fmt.Sprintf("p%02d", i))
		// Many equal counts so the tie-break is exercised at page boundaries.
		f.addComments(t, p.ID, i%3)
	}

	for _, sortBy := range []photos.SortKey{photos.SortByCreatedAt, photos.SortByCommentCount} {
		for _, order := range []photos.SortOrder{photos.OrderAsc, photos.OrderDesc} {
			for _, limit := range []int{1, 2, 5, 12, 22, 23, 50} {
				name := fmt.Sprintf("%s/%s/%d", sortBy, order, limit)
				t.Run(name, func(t *testing.T) {
					got := collectFeed(t, f.photos, photos.ListParams{Limit: limit, SortBy: sortBy, Order: order})
					require.Len(t, got, total)

					seen := map[string]bool{}
					for _, p := range got {
						assert.False(t, seen[p.ID], "duplicate %s", p.ID)
						seen[p.ID] = true
					}

					for i := 1; i < len(got); i++ {
						prev, cur := got[i-1], got[i]
						if sortBy == photos.SortByCommentCount {
							if order == photos.OrderDesc {
								assert.GreaterOrEqual(t, prev.CommentCount, cur.CommentCount)
							} else {
								assert.LessOrEqual(t, prev.CommentCount, cur.CommentCount)
							}
							continue
						}
						if order == photos.OrderDesc {
							assert.False(t, cur.CreatedAt.After(prev.CreatedAt))
						} else {
							assert.False(t, cur.CreatedAt.Before(prev.CreatedAt))
						}
					}
				})
			}
		}
	}
}

func TestListPhotosDefaultsAndEmptyFeed(t *testing.T) {
	f := newFixture(t)

	page, err := f.photos.List(context.Background(), photos.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
	assert.False(t, page.HasNextPage)
	assert.Nil(t, page.NextCursor)
	assert.Equal(t, photos.DefaultPhotoLimit, page.Limit)
}

func TestListPhotosRejectsBadParams(t *testing.T) {
	f := newFixture(t)

	_, err := f.photos.List(context.Background(), photos.ListParams{Limit: 51, SortBy: "title", Order: "up", Cursor: "nope"})
	require.Error(t, err)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)

	fields := []string{}
	for _, fe := range appErr.Fields {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"limit", "sortBy", "order", "cursor"}, fields)
}

func TestListPhotosRejectsCursorOfDeletedPhoto(t *testing.T) {
	f := newFixture(t)
	p := newPhoto(t, f.photos, "gone")
	require.NoError(t, f.photos.SoftDelete(context.Background(), p.ID))

	_, err := f.photos.List(context.Background(), photos.ListParams{Cursor: p.ID})
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "cursor", appErr.Fields[0].Field)
}

func TestListPhotosPreviewIsNewestThreeWithLiveCount(t *testing.T) {
	f := newFixture(t)
	p := newPhoto(t, f.photos, "busy")
	quiet := newPhoto(t, f.photos, "quiet")
	created := f.addComments(t, p.ID, 5)

	// A soft-deleted comment must vanish from preview and count alike.
	require.NoError(t, f.db.Delete(&photos.Comment{}, "id = ?", created[4].ID).Error)

	page, err := f.photos.List(context.Background(), photos.ListParams{SortBy: photos.SortByCommentCount})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)

	busy := page.Data[0]
	assert.Equal(t, p.ID, busy.ID)
	assert.EqualValues(t, 4, busy.CommentCount)
	require.Len(t, busy.Comments, photos.PreviewSize)
	assert.Equal(t, created[3].ID, busy.Comments[0].ID)
	assert.Equal(t, created[2].ID, busy.Comments[1].ID)
	assert.Equal(t, created[1].ID, busy.Comments[2].ID)

	assert.Equal(t, quiet.ID, page.Data[1].ID)
	assert.EqualValues(t, 0, page.Data[1].CommentCount)
	assert.NotNil(t, page.Data[1].Comments)
	assert.Empty(t, page.Data[1].Comments)
}

func TestKeysetPagesAreStableUnderInserts(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 6; i++ {
		newPhoto(t, f.photos, fmt.Sprintf("old%d", i))
	}

	first, err := f.photos.List(context.Background(), photos.ListParams{Limit: 3})
	require.NoError(t, err)
	require.True(t, first.HasNextPage)

	fresh := newPhoto(t, f.photos, "fresh")

	second, err := f.photos.List(context.Background(), photos.ListParams{Limit: 3, Cursor: *first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Data, 3)
	assert.False(t, second.HasNextPage)

	for _, p := range second.Data {
		assert.NotEqual(t, fresh.ID, p.ID)
		for _, q := range first.Data {
			assert.NotEqual(t, q.ID, p.ID)
		}
	}
}

func TestSoftDeleteHidesPhotoEverywhereButKeepsRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := newPhoto(t, f.photos, "doomed")
	keep := newPhoto(t, f.photos, "kept")
	f.addComments(t, p.ID, 2)

	require.NoError(t, f.photos.SoftDelete(ctx, p.ID))

	page, err := f.photos.List(ctx, photos.ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, keep.ID, page.Data[0].ID)

	_, err = f.photos.Get(ctx, p.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.comments.Create(ctx, p.ID, "hello?", "")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.comments.List(ctx, p.ID, "", 0)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	err = f.photos.SoftDelete(ctx, p.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	row, err := f.photos.FindUnscoped(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, row.DeletedAt.Valid)
	assert.Equal(t, "doomed", *row.Title)

	var stored int64
	require.NoError(t, f.db.Unscoped().Model(&photos.Comment{}).Where("photo_id = ?", p.ID).Count(&stored).Error)
	assert.EqualValues(t, 2, stored)
}

func TestGetPhotoReturnsAllActiveCommentsNewestFirst(t *testing.T) {
	f := newFixture(t)
	p := newPhoto(t, f.photos, "detail")
	created := f.addComments(t, p.ID, 5)

	got, err := f.photos.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, got.CommentCount)
	require.Len(t, got.Comments, 5)
	for i, c := range got.Comments {
		assert.Equal(t, created[4-i].ID, c.ID)
	}

	_, err = f.photos.Get(context.Background(), "not-a-uuid")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestCreateCommentValidatesContentLength(t *testing.T) {
	f := newFixture(t)
	p := newPhoto(t, f.photos, "lengths")

	_, err := f.comments.Create(context.Background(), p.ID, strings.Repeat("x", 1001), "")
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "content", appErr.Fields[0].Field)

	c, err := f.comments.Create(context.Background(), p.ID, strings.Repeat("é", 1000), "  ")
	require.NoError(t, err)
	assert.Equal(t, photos.AnonymousAuthor, c.AuthorName)
	assert.Equal(t, p.ID, c.PhotoID)
	assert.NotEmpty(t, c.ID)

	_, err = f.comments.Create(context.Background(), p.ID, "", "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestConcurrentCommentsAreAllCounted(t *testing.T) {
	f := newFixture(t)
	p := newPhoto(t, f.photos, "race")
	f.addComments(t, p.ID, 3)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.comments.Create(context.Background(), p.ID, fmt.Sprintf("concurrent %d", i), "")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := f.photos.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, got.CommentCount)
}

func TestListCommentsPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	p := newPhoto(t, f.photos, "thread")
	other := newPhoto(t, f.photos, "other")
	created := f.addComments(t, p.ID, 45)
	f.addComments(t, other.ID, 4)

	var got []photos.Comment
	cursor := ""
	pages := 0
	for {
		page, err := f.comments.List(context.Background(), p.ID, cursor, 0)
		require.NoError(t, err)
		assert.Equal(t, photos.DefaultCommentLimit, page.Limit)
		got = append(got, page.Data...)
		pages++
		if !page.HasNextPage {
			break
		}
		cursor = *page.NextCursor
	}

	assert.Equal(t, 3, pages)
	require.Len(t, got, 45)
	for i, c := range got {
		assert.Equal(t, created[44-i].ID, c.ID)
		assert.Equal(t, p.ID, c.PhotoID)
	}
}

func TestListCommentsValidation(t *testing.T) {
	f := newFixture(t)
	p := newPhoto(t, f.photos, "v")
	other := newPhoto(t, f.photos, "w")
	foreign := f.addComments(t, other.ID, 1)[0]

	_, err := f.comments.List(context.Background(), p.ID, "", 101)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.comments.List(context.Background(), p.ID, foreign.ID, 10)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.comments.List(context.Background(), "00000000-0000-0000-0000-000000000000", "", 10)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
