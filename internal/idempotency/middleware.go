package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/riteshkumar/ledger-assistant/internal/metrics"
	"github.com/riteshkumar/ledger-assistant/internal/utils"
)

const (
	HeaderKey = "Idempotency-Key"
	HeaderHit = "X-Idempotency-Hit"

	// inFlightTTL bounds how long a crashed request can hold its key.
	inFlightTTL = time.Minute
	maxKeyLen   = 255
	maxBodySize = 1 << 16
)

// Middleware replays the stored response for POST requests that repeat an
// Idempotency-Key. Responses with status >= 500 are not stored so the client
// may retry them. Store failures fall back to serving the request normally.
// Reusing a key with a different request body is rejected with 422.
func Middleware(store Store, collector metrics.Collector, logger *zap.Logger) mux.MiddlewareFunc {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	logger = logger.Named("idempotency")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderKey)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxKeyLen {
				utils.WriteError(w, http.StatusBadRequest, "invalid idempotency key",
					"Idempotency-Key must be at most 255 characters")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
			if err != nil {
				utils.WriteError(w, http.StatusBadRequest, "invalid request payload", err.Error())
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			requestHash := hex.EncodeToString(sum[:])

			ctx := r.Context()
			storeKey := r.Method + " " + r.URL.Path + " " + key

			acquired, err := store.Reserve(ctx, storeKey, inFlightTTL)
			if err != nil {
				logger.Error("failed to reserve idempotency key", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if !acquired {
				record, found, err := store.Get(ctx, storeKey)
				switch {
				case err != nil:
					logger.Error("failed to read idempotency key", zap.String("key", key), zap.Error(err))
					next.ServeHTTP(w, r)
				case !found || record.Pending:
					utils.WriteError(w, http.StatusConflict, "request in progress",
						"a request with this Idempotency-Key is still being processed")
				case record.RequestHash != requestHash:
					logger.Warn("idempotency key reused with a different body", zap.String("key", key))
					utils.WriteError(w, http.StatusUnprocessableEntity, "idempotency key mismatch",
						"Idempotency-Key was already used with a different request body")
				default:
					logger.Info("idempotency hit, replaying stored response",
						zap.String("key", key), zap.Int("status", record.Status))
					collector.RecordIdempotencyHit()
					w.Header().Set(HeaderHit, "true")
					if record.ContentType != "" {
						w.Header().Set("Content-Type", record.ContentType)
					}
					w.WriteHeader(record.Status)
					_, _ = w.Write(record.Body)
				}
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// The mutation has run; a client that went away must still find
			// its key settled when it retries.
			ctx = context.WithoutCancel(ctx)

			if rec.status >= http.StatusInternalServerError {
				if err := store.Release(ctx, storeKey); err != nil {
					logger.Error("failed to release idempotency key", zap.String("key", key), zap.Error(err))
				}
				return
			}

			err = store.Complete(ctx, storeKey, Record{
				RequestHash: requestHash,
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				logger.Error("failed to save idempotency key", zap.String("key", key), zap.Error(err))
				return
			}
			logger.Debug("idempotency key saved", zap.String("key", key), zap.Int("status", rec.status))
		})
	}
}

// recorder passes the response through while keeping a copy of it.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
