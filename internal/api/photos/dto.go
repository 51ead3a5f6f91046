package photosapi

import "photo-feed/internal/domain/photos"

// ---------- requests

type ListPhotosQuery struct {
	Cursor string `form:"cursor" binding:"omitempty,uuid"`
	Limit  int    `form:"limit" binding:"min=1,max=50"`
	SortBy string `form:"sortBy" binding:"oneof=createdAt commentCount"`
	Order  string `form:"order" binding:"oneof=asc desc"`
}

func defaultListPhotosQuery() ListPhotosQuery {
	return ListPhotosQuery{
		Limit:  photos.DefaultPhotoLimit,
		SortBy: string(photos.SortByCreatedAt),
		Order:  string(photos.OrderDesc),
	}
}

func (q ListPhotosQuery) params() photos.ListParams {
	return photos.ListParams{
		Cursor: q.Cursor,
		Limit:  q.Limit,
		SortBy: photos.SortKey(q.SortBy),
		Order:  photos.SortOrder(q.Order),
	}
}
