package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/docpilot/portal/internal/model"
)

const maxJSONBody = 64 << 10

var errBadJSON = model.NewUserError(model.ErrInvalidArgument, "request body is not valid JSON", nil)

// decodeStrict decodes a single JSON object and rejects unknown fields.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return errors.Join(errBadJSON, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errBadJSON
	}
	return nil
}
