package media

import (
	"image"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
	MIMEGIF  = "image/gif"
)

// Image is the canonical, transcoded form of an upload.
type Image struct {
	Data     []byte
	Width    int
	Height   int
	MIMEType string
	// Raster holds the pixels Data was encoded from, so stores can derive
	// variants without decoding Data again. May be nil.
	Raster image.Image
}

// NormalizeMIME lower-cases a declared type, drops parameters and maps the
// common "image/jpg" alias onto image/jpeg.
func NormalizeMIME(declared string) string {
	m := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m == "image/jpg" || m == "image/pjpeg" {
		return MIMEJPEG
	}
	return m
}

// DetectMIME sniffs the content type of data. Used only when the client did
// not declare one.
func DetectMIME(data []byte) string {
	return NormalizeMIME(mimetype.Detect(data).String())
}

// Supported reports whether mimeType is an accepted upload format.
func Supported(mimeType string) bool {
	_, ok := codecs[NormalizeMIME(mimeType)]
	return ok
}
