package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"ochre-shop/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

const (
	allowedMethods = "GET, POST, OPTIONS"
	allowedHeaders = "Content-Type, Authorization, X-API-Key, X-Requested-With"
)

// CORS lets the listed origins call the shop with the visitor's cookies. Other
// origins get no CORS headers, so browsers keep them out. Preflights end here.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin != "" && slices.Contains(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyAuth guards the staff routes with the X-API-Key header.
func APIKeyAuth(apiKey string, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "staff_auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-API-Key")
			switch {
			case provided == "":
				logger.Warn().Str("path", r.URL.Path).Msg("staff request without API key")
				writeFailure(w, http.StatusUnauthorized, "unauthorised: missing API key", model.ErrCodeUnauthorised)
				return
			case apiKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1:
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("staff request with wrong API key")
				writeFailure(w, http.StatusUnauthorized, "unauthorised: invalid API key", model.ErrCodeUnauthorised)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Logging tags every request with an id, echoes it in the response and
// writes one access line. Server errors log at error level, client errors
// at warn.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			rw := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			event := logger.Info()
			switch {
			case rw.Status() >= http.StatusInternalServerError:
				event = logger.Error()
			case rw.Status() >= http.StatusBadRequest:
				event = logger.Warn()
			}
			event.
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.Status()).
				Int("bytes", rw.bytes).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("http request")
		})
	}
}

// Recovery turns a panic into a 500 JSON body, unless the handler already
// started its response.
func Recovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &statusRecorder{ResponseWriter: w}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error().
					Interface("panic", rec).
					Str("request_id", w.Header().Get(RequestIDHeader)).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bool("response_started", rw.wroteHeader).
					Msg("panic recovered")

				if !rw.wroteHeader {
					writeFailure(rw, http.StatusInternalServerError, "internal server error", model.ErrCodeInternalError)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

// statusRecorder remembers the status and size of the response.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Status is 200 when the handler never set one.
func (rw *statusRecorder) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func writeFailure(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{OK: false, Error: message, Code: code})
}
