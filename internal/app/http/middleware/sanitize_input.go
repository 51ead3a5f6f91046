package middleware

import (
	"bytes"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"strings"

	"photo-feed/internal/api/respond"
	"photo-feed/internal/apperror"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

// SanitizeJSONStrings strips markup from every top-level string field of a
// JSON object body using bluemonday. Entities produced by the policy are
// unescaped again so plain text like "a & b" survives unchanged.
func SanitizeJSONStrings() gin.HandlerFunc {
	policy := bluemonday.StrictPolicy()

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}
		if !strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
			c.Next()
			return
		}

		buf, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respond.Error(c, apperror.Wrap(apperror.KindValidation, "Invalid body", err))
			return
		}

		var body map[string]any
		if err := json.Unmarshal(buf, &body); err != nil {
			respond.Error(c, apperror.Wrap(apperror.KindValidation, "Malformed JSON", err))
			return
		}

		for k, v := range body {
			if str, ok := v.(string); ok {
				body[k] = html.UnescapeString(policy.Sanitize(str))
			}
		}

		clean, err := json.Marshal(body)
		if err != nil {
			respond.Error(c, apperror.Wrap(apperror.KindInternal, "Invalid body", err))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(clean))
		c.Request.ContentLength = int64(len(clean))

		c.Next()
	}
}
