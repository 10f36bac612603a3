package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	idempotencyTTL         = 24 * time.Hour
	idempotencyInFlightTTL = 30 * time.Second
)

// cachedResponse is the stored outcome of a keyed request.
type cachedResponse struct {
	StatusCode  int             `json:"status_code"`
	Body        json.RawMessage `json:"body"`
	ContentType string          `json:"content_type"`
}

// responseWriter captures the body written by the handler.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response when a POST is retried
// with the same Idempotency-Key. Keys are scoped to the calling user, so it
// must run after AuthMiddleware. A key whose first request is still running
// gets 409.
func IdempotencyMiddleware(client redis.Cmdable) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		scope := "anonymous"
		if actor, ok := ActorFrom(c); ok {
			scope = actor.UserID
		}
		cacheKey := "idempotency:" + scope + ":" + c.FullPath() + ":" + key
		inFlightKey := cacheKey + ":inflight"

		ctx := c.Request.Context()

		cached, err := getCachedResponse(ctx, client, cacheKey)
		switch {
		case err == nil:
			c.Data(cached.StatusCode, cached.ContentType, cached.Body)
			c.Abort()
			return
		case !errors.Is(err, redis.Nil):
			log.Printf("[IDEMPOTENCY] lookup failed, proceeding without replay: %v", err)
			c.Next()
			return
		}

		acquired, err := client.SetNX(ctx, inFlightKey, 1, idempotencyInFlightTTL).Result()
		if err != nil {
			log.Printf("[IDEMPOTENCY] reserve failed, proceeding without replay: %v", err)
			c.Next()
			return
		}
		if !acquired {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "a request with this idempotency key is in progress",
				"kind":  "CONFLICT",
			})
			return
		}
		defer client.Del(context.WithoutCancel(ctx), inFlightKey)

		// The first request may have stored its response and released the
		// marker between the lookup above and the reservation.
		if cached, err := getCachedResponse(ctx, client, cacheKey); err == nil {
			c.Data(cached.StatusCode, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		w := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		if status := w.Status(); status < http.StatusInternalServerError {
			response := cachedResponse{
				StatusCode:  status,
				Body:        w.body.Bytes(),
				ContentType: w.Header().Get("Content-Type"),
			}
			if err := setCachedResponse(context.WithoutCancel(ctx), client, cacheKey, &response); err != nil {
				log.Printf("[IDEMPOTENCY] store failed for %s: %v", cacheKey, err)
			}
		}
	}
}

func getCachedResponse(ctx context.Context, client redis.Cmdable, key string) (*cachedResponse, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &cached, nil
}

func setCachedResponse(ctx context.Context, client redis.Cmdable, key string, response *cachedResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return client.Set(ctx, key, data, idempotencyTTL).Err()
}
