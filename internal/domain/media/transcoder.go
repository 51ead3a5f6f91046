package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"photo-feed/internal/apperror"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"
)

const (
	DefaultMaxBytes     = 10 << 20
	DefaultMaxDimension = 1920
	DefaultQuality      = 85
	// Guards against decompression bombs that fit in 10 MiB.
	DefaultMaxPixels = 100_000_000
)

type codec struct {
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
}

var codecs = map[string]codec{
	MIMEJPEG: {jpeg.Decode, jpeg.DecodeConfig},
	MIMEPNG:  {png.Decode, png.DecodeConfig},
	MIMEWebP: {webp.Decode, webp.DecodeConfig},
	MIMEGIF:  {gif.Decode, gif.DecodeConfig},
}

// Transcoder validates uploads and normalises them into a bounded JPEG.
type Transcoder struct {
	MaxBytes     int64
	MaxDimension int
	MaxPixels    int
	Quality      int
}

func NewTranscoder() *Transcoder {
	return &Transcoder{
		MaxBytes:     DefaultMaxBytes,
		MaxDimension: DefaultMaxDimension,
		MaxPixels:    DefaultMaxPixels,
		Quality:      DefaultQuality,
	}
}

// Validate checks the declared type and the original upload size. It never
// looks at the content.
func (t *Transcoder) Validate(mimeType string, size int64) error {
	if size <= 0 {
		return apperror.Validation(apperror.FieldError{Field: "file", Message: "File is empty"})
	}
	if !Supported(mimeType) {
		return apperror.New(apperror.KindUnsupportedMediaType,
			fmt.Sprintf("Unsupported file type %q (allowed: JPEG, PNG, WebP, GIF)", mimeType))
	}
	if size > t.MaxBytes {
		return apperror.New(apperror.KindPayloadTooLarge,
			fmt.Sprintf("File too large (max %d MB)", t.MaxBytes>>20))
	}
	return nil
}

// Transcode decodes data with the decoder of the declared type, shrinks it so
// neither side exceeds MaxDimension, and re-encodes it as JPEG.
func (t *Transcoder) Transcode(ctx context.Context, data []byte, mimeType string) (*Image, error) {
	if err := t.Validate(mimeType, int64(len(data))); err != nil {
		return nil, err
	}
	c := codecs[NormalizeMIME(mimeType)]

	cfg, err := c.decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindImageDecode,
			"Image could not be decoded; the file is corrupt or not a "+NormalizeMIME(mimeType), err)
	}
	if t.MaxPixels > 0 && cfg.Width*cfg.Height > t.MaxPixels {
		return nil, apperror.New(apperror.KindImageDecode, "Image dimensions are too large")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := c.decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperror.Wrap(apperror.KindImageDecode,
			"Image could not be decoded; the file is corrupt or not a "+NormalizeMIME(mimeType), err)
	}

	// Fit never enlarges; images already inside the bound are only copied.
	bounded := imaging.Fit(src, t.MaxDimension, t.MaxDimension, imaging.Lanczos)
	flat := flatten(bounded)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: t.Quality}); err != nil {
		return nil, apperror.Wrap(apperror.KindProcessing, "Failed to encode image", err)
	}

	b := flat.Bounds()
	return &Image{
		Data:     buf.Bytes(),
		Width:    b.Dx(),
		Height:   b.Dy(),
		MIMEType: MIMEJPEG,
		Raster:   flat,
	}, nil
}

// flatten composites img over white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
