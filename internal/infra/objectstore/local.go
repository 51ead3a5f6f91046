package objectstore

import (
	"context"
	"os"
	"path/filepath"

	"photo-feed/internal/domain/media"
)

// LocalStore writes objects under Root and addresses them below BaseURL.
// The HTTP server exposes Root as static files in development.
type LocalStore struct {
	Root    string
	BaseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{Root: root, BaseURL: baseURL}, nil
}

func (s *LocalStore) Put(ctx context.Context, folder string, img *media.Image) (*Object, error) {
	v, err := prepare(folder, img)
	if err != nil {
		return nil, err
	}
	data := img.Data
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.write(v.key, data); err != nil {
		return nil, unavailable(err)
	}
	if err := s.write(v.thumbKey, v.thumb); err != nil {
		os.Remove(filepath.Join(s.Root, filepath.FromSlash(v.key)))
		return nil, unavailable(err)
	}

	return &Object{
		Key:          v.key,
		ThumbnailKey: v.thumbKey,
		URL:          publicURL(s.BaseURL, v.key),
		ThumbnailURL: publicURL(s.BaseURL, v.thumbKey),
		Size:         int64(len(data)),
		Width:        v.width,
		Height:       v.height,
	}, nil
}

func (s *LocalStore) write(key string, data []byte) error {
	p := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}
