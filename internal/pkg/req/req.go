/*
Package req provides helper functions for binding control API request bodies.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"hzrealtime/internal/pkg/errs"
)

// MaxBodyBytes bounds a control API request body.
const MaxBodyBytes int64 = 64 << 10

// BindJSON binds the JSON request body to dst. Unknown fields and trailing data are rejected.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
