package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"propcache-backend/infrastructure/cache"
)

// cachedResponse is the envelope stored for a cached HTTP response
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseCache caches successful GET responses in the key-value cache under
// the given key prefix. The mutation-triggered invalidation hook clears the
// same prefix, so cached responses never outlive a store change by more than
// the hook's own latency. Cache failures degrade to an uncached request; the
// strict no-masking policy applies to the repository read path, not to this
// response layer.
func ResponseCache(kv cache.Cache, prefix string, ttl time.Duration, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := prefix + r.Method + ":" + r.URL.RequestURI()

			if data, found, err := kv.Get(r.Context(), key); err != nil {
				logger.Warn("Response cache unavailable, serving uncached", zap.Error(err))
			} else if found {
				var cached cachedResponse
				if err := json.Unmarshal(data, &cached); err == nil {
					w.Header().Set("Content-Type", cached.ContentType)
					w.Header().Set("X-Cache", "HIT")
					w.WriteHeader(cached.Status)
					w.Write(cached.Body)
					return
				}
			}

			recorder := &bodyRecorder{WrapResponseWriter: chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)}
			w.Header().Set("X-Cache", "MISS")
			next.ServeHTTP(recorder, r)

			if recorder.Status() != http.StatusOK {
				return
			}

			envelope, err := json.Marshal(cachedResponse{
				Status:      recorder.Status(),
				ContentType: recorder.Header().Get("Content-Type"),
				Body:        recorder.body,
			})
			if err != nil {
				return
			}
			if err := kv.Set(r.Context(), key, envelope, ttl); err != nil {
				logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

// bodyRecorder tees the response body while it streams to the client
type bodyRecorder struct {
	chimiddleware.WrapResponseWriter
	body []byte
}

func (r *bodyRecorder) Write(p []byte) (int, error) {
	r.body = append(r.body, p...)
	return r.WrapResponseWriter.Write(p)
}
