// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides Audit, which persists one request_logs row per request.
// The write happens off the request path through the background task queue at
// the lowest priority, so the audit trail never adds latency to order or
// webhook handling.
package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oaddad/nucleo-backend/internal/domain"
	"github.com/oaddad/nucleo-backend/internal/queue"
	"github.com/oaddad/nucleo-backend/internal/repo"
)

// Audit returns a Gin middleware that appends a RequestLog row for every
// completed request via q. Submission failures (queue stopped during
// shutdown) are silently dropped; the audit trail is best effort.
func Audit(db *gorm.DB, q *queue.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		row := &domain.RequestLog{
			ID:         uuid.NewString(),
			Timestamp:  start.UTC(),
			Method:     c.Request.Method,
			Path:       path,
			Status:     c.Writer.Status(),
			DurationMS: time.Since(start).Milliseconds(),
			RemoteIP:   c.ClientIP(),
		}
		_, _ = q.Submit("request-log", queue.Background, func(ctx context.Context) error {
			return repo.AppendRequestLog(ctx, db, row)
		})
	}
}
