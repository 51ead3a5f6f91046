package feedclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientListPhotosEncodesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/photos", r.URL.Path)
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "commentCount", r.URL.Query().Get("sortBy"))
		assert.Equal(t, "asc", r.URL.Query().Get("order"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"id":"p1","commentCount":2,"comments":[]}],"pagination":{"nextCursor":"p1","hasNextPage":true,"limit":5}}`)
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL+"/", nil).ListPhotos(context.Background(), ListParams{
		Cursor: "abc", Limit: 5, SortBy: "commentCount", Order: "asc",
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.EqualValues(t, 2, page.Data[0].CommentCount)
	assert.True(t, page.Pagination.HasNextPage)
	assert.Equal(t, "p1", *page.Pagination.NextCursor)
}

func TestClientDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Invalid input","kind":"ValidationError","details":[{"field":"limit","message":"must be at most 50"}]}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).ListPhotos(context.Background(), ListParams{Limit: 99})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "ValidationError", apiErr.Kind)
	require.Len(t, apiErr.Details, 1)
	assert.Equal(t, "limit", apiErr.Details[0].Field)
	assert.Contains(t, err.Error(), "must be at most 50")
}

func TestClientCreateCommentOmitsBlankAuthor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/photos/p9/comments", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"content": "nice"}, body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"c1","content":"nice","authorName":"Anonymous","photoId":"p9"}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil).CreateComment(context.Background(), "p9", "nice", " ")
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", c.AuthorName)
}

func TestClientUploadPhotoSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "cat.png", fh.Filename)
		assert.Equal(t, "image/png", fh.Header.Get("Content-Type"))
		assert.Equal(t, []byte{1, 2, 3}, data)
		assert.Equal(t, "Cat", r.FormValue("title"))
		_, hasDesc := r.MultipartForm.Value["description"]
		assert.False(t, hasDesc)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"p1","title":"Cat"}`)
	}))
	defer srv.Close()

	p, err := NewClient(srv.URL, nil).UploadPhoto(context.Background(), Upload{
		Filename: "cat.png", ContentType: "image/png", Data: []byte{1, 2, 3}, Title: "Cat",
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
}
