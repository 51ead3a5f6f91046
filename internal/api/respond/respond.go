// Package respond writes the JSON error and page envelopes shared by the API
// handlers.
package respond

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"photo-feed/internal/apperror"
	"photo-feed/internal/domain/photos"
	"photo-feed/internal/ingest"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

type PaginationDTO struct {
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
	Limit       int     `json:"limit"`
}

type PageDTO[T any] struct {
	Data       []T           `json:"data"`
	Pagination PaginationDTO `json:"pagination"`
}

func Page[T any](c *gin.Context, page photos.Page[T]) {
	c.JSON(200, PageDTO[T]{
		Data: page.Data,
		Pagination: PaginationDTO{
			NextCursor:  page.NextCursor,
			HasNextPage: page.HasNextPage,
			Limit:       page.Limit,
		},
	})
}

// Error writes err as {"error", "kind", "details"?, "stage"?}. Internal causes
// are logged, never returned.
func Error(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := apperror.Status(kind)

	body := gin.H{"error": "Internal server error", "kind": kind}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if len(appErr.Fields) > 0 {
			body["details"] = appErr.Fields
		}
	}
	var stageErr *ingest.StageError
	if errors.As(err, &stageErr) {
		body["stage"] = stageErr.Stage
	}

	evt := log.Debug()
	if status >= 500 {
		evt = log.Error()
	}
	evt.Err(err).Str("kind", string(kind)).Str("path", c.FullPath()).Msg("request failed")

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// BindError converts a gin binding failure into a ValidationError. parseField
// names the field to blame when the value could not even be parsed.
func BindError(err error, parseField string) *apperror.Error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make([]apperror.FieldError, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, apperror.FieldError{Field: fe.Field(), Message: describe(fe)})
		}
		return apperror.Validation(fields...)
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return apperror.Validation(apperror.FieldError{Field: parseField, Message: "must be an integer"})
	}
	return apperror.Validation(apperror.FieldError{Field: parseField, Message: err.Error()})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "uuid":
		return "must be a valid id"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// UseTagFieldNames makes validation details report json/form names instead
// of Go struct field names.
func UseTagFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.Split(f.Tag.Get(tag), ",")[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}
