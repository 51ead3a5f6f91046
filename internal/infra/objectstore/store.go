// Package objectstore uploads transcoded images to durable blob storage.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"path"
	"strings"

	"photo-feed/internal/apperror"
	"photo-feed/internal/domain/media"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	ThumbnailSize    = 400
	ThumbnailQuality = 60
	contentTypeJPEG  = "image/jpeg"
)

// Object describes a stored canonical image and its derived thumbnail.
// Width and Height are read back from the stored canonical bytes and win over
// anything the caller computed.
type Object struct {
	Key          string
	ThumbnailKey string
	URL          string
	ThumbnailURL string
	Size         int64
	Width        int
	Height       int
}

// Store uploads a canonical JPEG under folder and derives a thumbnail in the
// same call. Failures are StorageUnavailable and are not retried.
type Store interface {
	Put(ctx context.Context, folder string, img *media.Image) (*Object, error)
}

// variants holds what every backend writes for one Put.
type variants struct {
	key, thumbKey string
	thumb         []byte
	width, height int
}

// prepare reads the stored dimensions from the JPEG header and cuts the
// thumbnail from img.Raster. Data is fully decoded only when no raster came
// along with it.
func prepare(folder string, img *media.Image) (*variants, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, unavailable(errors.New("no image data"))
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return nil, unavailable(err)
	}

	src := img.Raster
	if src == nil {
		if src, err = jpeg.Decode(bytes.NewReader(img.Data)); err != nil {
			return nil, unavailable(err)
		}
	}
	thumb := imaging.Fill(src, ThumbnailSize, ThumbnailSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: ThumbnailQuality}); err != nil {
		return nil, unavailable(err)
	}

	key, thumbKey := objectKeys(folder, uuid.NewString())
	return &variants{key: key, thumbKey: thumbKey, thumb: buf.Bytes(), width: cfg.Width, height: cfg.Height}, nil
}

func objectKeys(folder, id string) (string, string) {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	return path.Join(folder, id+".jpg"), path.Join(folder, "thumbnails", id+".jpg")
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

func unavailable(err error) error {
	return apperror.Wrap(apperror.KindStorageUnavailable, "Failed to upload image", err)
}
