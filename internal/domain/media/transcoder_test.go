package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"photo-feed/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	return cfg.Width, cfg.Height
}

func TestTranscodeSmallPNGIsNotUpscaled(t *testing.T) {
	data := encodePNG(t, solid(50, 50, color.RGBA{R: 200, A: 255}))

	out, err := NewTranscoder().Transcode(context.Background(), data, "image/png")
	require.NoError(t, err)

	assert.Equal(t, 50, out.Width)
	assert.Equal(t, 50, out.Height)
	assert.Equal(t, MIMEJPEG, out.MIMEType)
	w, h := decodedSize(t, out.Data)
	assert.Equal(t, 50, w)
	assert.Equal(t, 50, h)
}

func TestTranscodeLargeJPEGIsBounded(t *testing.T) {
	data := encodeJPEG(t, image.NewRGBA(image.Rect(0, 0, 4000, 3000)))

	out, err := NewTranscoder().Transcode(context.Background(), data, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, 1920, out.Width)
	assert.Equal(t, 1440, out.Height)
	w, h := decodedSize(t, out.Data)
	assert.LessOrEqual(t, max(w, h), 1920)
	assert.InDelta(t, 4.0/3.0, float64(w)/float64(h), 0.01)

	require.NotNil(t, out.Raster)
	assert.Equal(t, image.Rect(0, 0, 1920, 1440), out.Raster.Bounds())
}

func TestTranscodePortraitKeepsAspect(t *testing.T) {
	data := encodePNG(t, image.NewGray(image.Rect(0, 0, 1000, 4000)))

	out, err := NewTranscoder().Transcode(context.Background(), data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, 1920, out.Height)
	assert.Equal(t, 480, out.Width)
}

func TestTranscodeFlattensTransparency(t *testing.T) {
	data := encodePNG(t, solid(10, 10, color.NRGBA{}))

	out, err := NewTranscoder().Transcode(context.Background(), data, "image/png")
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	r, g, b, _ := img.At(5, 5).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestTranscodeGIFUsesFirstFrame(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 30, 20), []color.Color{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, pal, nil))

	out, err := NewTranscoder().Transcode(context.Background(), buf.Bytes(), "image/gif")
	require.NoError(t, err)
	assert.Equal(t, 30, out.Width)
	assert.Equal(t, 20, out.Height)
}

func TestValidateRejectsUnsupportedType(t *testing.T) {
	err := NewTranscoder().Validate("application/pdf", 100)
	assert.Equal(t, apperror.KindUnsupportedMediaType, apperror.KindOf(err))

	err = NewTranscoder().Validate("image/tiff", 100)
	assert.Equal(t, apperror.KindUnsupportedMediaType, apperror.KindOf(err))
}

func TestValidateRejectsOversizeOriginal(t *testing.T) {
	tr := NewTranscoder()
	assert.NoError(t, tr.Validate("image/jpeg", DefaultMaxBytes))

	err := tr.Validate("image/jpeg", DefaultMaxBytes+1)
	assert.Equal(t, apperror.KindPayloadTooLarge, apperror.KindOf(err))
}

func TestValidateRejectsEmpty(t *testing.T) {
	err := NewTranscoder().Validate("image/png", 0)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestTranscodeCorruptPayloadIsDecodeError(t *testing.T) {
	_, err := NewTranscoder().Transcode(context.Background(), []byte("definitely not a jpeg"), "image/jpeg")
	assert.Equal(t, apperror.KindImageDecode, apperror.KindOf(err))
}

func TestTranscodeMismatchedContentIsDecodeError(t *testing.T) {
	data := encodePNG(t, solid(8, 8, color.White))

	_, err := NewTranscoder().Transcode(context.Background(), data, "image/jpeg")
	assert.Equal(t, apperror.KindImageDecode, apperror.KindOf(err))

	_, err = NewTranscoder().Transcode(context.Background(), data, "image/webp")
	assert.Equal(t, apperror.KindImageDecode, apperror.KindOf(err))
}

func TestTranscodeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := encodePNG(t, solid(8, 8, color.White))
	_, err := NewTranscoder().Transcode(ctx, data, "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeAndDetectMIME(t *testing.T) {
	assert.Equal(t, MIMEJPEG, NormalizeMIME("image/JPG"))
	assert.Equal(t, MIMEPNG, NormalizeMIME(" image/png; charset=binary"))
	assert.Equal(t, MIMEPNG, DetectMIME(encodePNG(t, solid(2, 2, color.White))))
	assert.True(t, Supported("image/webp"))
	assert.False(t, Supported("image/svg+xml"))
}
