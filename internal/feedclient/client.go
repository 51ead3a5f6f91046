package feedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// API is the subset of the feed server the cache depends on.
type API interface {
	ListPhotos(ctx context.Context, params ListParams) (*Page, error)
	CreateComment(ctx context.Context, photoID, content, authorName string) (*Comment, error)
	UploadPhoto(ctx context.Context, up Upload) (*Photo, error)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL. A nil hc gets a
// client with a 60s timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) ListPhotos(ctx context.Context, params ListParams) (*Page, error) {
	q := url.Values{}
	if params.Cursor != "" {
		q.Set("cursor", params.Cursor)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.SortBy != "" {
		q.Set("sortBy", params.SortBy)
	}
	if params.Order != "" {
		q.Set("order", params.Order)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/photos?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var page Page
	if err := c.do(req, http.StatusOK, &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []Photo{}
	}
	return &page, nil
}

func (c *Client) CreateComment(ctx context.Context, photoID, content, authorName string) (*Comment, error) {
	body := map[string]string{"content": content}
	if strings.TrimSpace(authorName) != "" {
		body["authorName"] = authorName
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/photos/"+url.PathEscape(photoID)+"/comments", bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out Comment
	if err := c.do(req, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UploadPhoto(ctx context.Context, up Upload) (*Photo, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, up.Filename))
	if up.ContentType != "" {
		h.Set("Content-Type", up.ContentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, err
	}
	if up.Title != "" {
		if err := mw.WriteField("title", up.Title); err != nil {
			return nil, err
		}
	}
	if up.Description != "" {
		if err := mw.WriteField("description", up.Description); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/photos", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out Photo
	if err := c.do(req, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, want int, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return apiErr
	}
	return json.Unmarshal(data, out)
}
