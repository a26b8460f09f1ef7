package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/matzehuels/flowcanvas/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err, "request_id", RequestID(r.Context()))
	}
	writeJSON(w, status, ErrorResponse{Code: code, Message: errors.UserMessage(err)})
}

// statusFor maps an error to its HTTP status and reported code. Uncoded
// errors are internal.
func statusFor(err error) (int, errors.Code) {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidInput
	}
	switch code := errors.GetCode(err); code {
	case errors.ErrCodeInvalidInput,
		errors.ErrCodeInvalidFlow,
		errors.ErrCodeInvalidGeometry,
		errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidStepName,
		errors.ErrCodeDuplicateStep,
		errors.ErrCodeUnsupportedStepType,
		errors.ErrCodeUnsupported:
		return http.StatusBadRequest, code
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound, code
	case "":
		return http.StatusInternalServerError, errors.ErrCodeInternal
	default:
		return http.StatusInternalServerError, code
	}
}

// decodeJSON reads a JSON request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return err
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

// readBody reads the whole request body, keeping a size-limit failure
// distinguishable.
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	return data, nil
}

// flowFormat picks the flow decoder from the Content-Type. Anything that is
// not recognisably JSON or YAML is sniffed.
func flowFormat(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	switch {
	case strings.HasSuffix(mt, "json"):
		return "json"
	case strings.HasSuffix(mt, "yaml"):
		return "yaml"
	}
	return ""
}
