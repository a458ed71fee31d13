package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ochre-shop/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds JSON and form request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{OK: false, Error: message})
}

// respondError maps err to a status and writes it. Domain errors carry their
// own message; anything else is logged and hidden behind a generic one.
func respondError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			OK:    false,
			Error: "internal server error",
			Code:  model.ErrCodeInternalError,
		})
		return
	}

	status := statusFor(de.Code)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("code", de.Code).Msg("request failed")
	} else {
		logger.Debug().Str("code", de.Code).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, model.ErrorResponse{OK: false, Error: de.Message, Code: de.Code})
}

// statusFor maps a domain error code to an HTTP status.
func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidInput,
		model.ErrCodeInvalidQuantity,
		model.ErrCodeUnitNotFound,
		model.ErrCodeEmptyCart,
		model.ErrCodePriceRequired,
		model.ErrCodeGatewayOrderMismatch,
		model.ErrCodeSignatureInvalid:
		return http.StatusBadRequest
	case model.ErrCodeProductNotFound,
		model.ErrCodeOrderNotFound,
		model.ErrCodeBookingNotFound,
		model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidCredentials, model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeOrderAlreadyPaid,
		model.ErrCodeInvalidTransition,
		model.ErrCodeEmailTaken,
		model.ErrCodeSlugTaken:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// wantsJSON reports whether the caller is script-driven and expects a JSON
// body instead of a redirect.
func wantsJSON(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return isJSONBody(r)
}

func isJSONBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// readValues returns the request fields from either a JSON object or a
// urlencoded/multipart form.
func readValues(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if !isJSONBody(r) {
		if err := r.ParseForm(); err != nil {
			return nil, model.NewInputError("invalid form body")
		}
		return r.PostForm, nil
	}

	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, model.NewInputError("invalid request body")
	}

	vals := make(url.Values, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
		case string:
			vals.Set(k, v)
		default:
			vals.Set(k, fmt.Sprint(v))
		}
	}
	return vals, nil
}

// decodeJSON decodes a JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewInputError("invalid request body")
	}
	return nil
}

// optionalID parses an optional positive id. Empty means nil.
func optionalID(raw string) (*int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}

// redirectTarget picks where a form post returns to: the next field, then
// the Referer, then fallback. Only same-site paths are followed.
func redirectTarget(r *http.Request, next, fallback string) string {
	if p, ok := localPath(next, r.Host); ok {
		return p
	}
	if p, ok := localPath(r.Referer(), r.Host); ok {
		return p
	}
	return fallback
}

func localPath(raw, host string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Host != "" && u.Host != host) || (u.Scheme != "" && u.Host == "") {
		return "", false
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "", false
	}
	return u.RequestURI(), true
}

// pathUUID parses a uuid path segment. A malformed id is reported as
// notFound.
func pathUUID(r *http.Request, name string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue(name)))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}
