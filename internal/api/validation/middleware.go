package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rohits-web03/estately/internal/utils"
)

const maxBodyBytes = 1 << 20

func writeFailure(w http.ResponseWriter, errs []FieldError) {
	utils.JSONResponse(w, http.StatusUnprocessableEntity, utils.Payload{
		Success:    false,
		StatusCode: http.StatusUnprocessableEntity,
		Message:    "Validation failed",
		Errors:     errs,
	})
}

// DecodeDoc reads a JSON object keeping numbers as json.Number.
func DecodeDoc(r io.Reader) (Doc, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc Doc
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("request body must be a JSON object")
	}
	return doc, nil
}

// Body validates a JSON request body. The handler receives the sanitized
// document as its body.
func Body(schema Schema) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			doc, err := DecodeDoc(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				utils.ErrorResponse(w, http.StatusBadRequest, "Invalid input")
				return
			}
			if errs := schema.Validate(r.Context(), doc); len(errs) > 0 {
				writeFailure(w, errs)
				return
			}

			raw, err := json.Marshal(doc)
			if err != nil {
				utils.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))
			r.ContentLength = int64(len(raw))
			next.ServeHTTP(w, r)
		})
	}
}

// Query validates the first value of each query parameter and rewrites the
// query string with the sanitized values.
func Query(schema Schema) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			values := r.URL.Query()
			doc := make(Doc, len(values))
			for k := range values {
				doc[k] = values.Get(k)
			}
			if errs := schema.Validate(r.Context(), doc); len(errs) > 0 {
				writeFailure(w, errs)
				return
			}

			clean := make(url.Values, len(doc))
			for k, v := range doc {
				clean.Set(k, fmt.Sprint(v))
			}
			r2 := r.Clone(r.Context())
			r2.URL.RawQuery = clean.Encode()
			next.ServeHTTP(w, r2)
		})
	}
}
