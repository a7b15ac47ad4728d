// Package rpc exposes Compaction over HTTP/JSON, grounded on bunbase's
// gin-gonic server wiring (platform/cmd/server/main.go's router.Group,
// health endpoint, and rate-limit middleware from
// platform/internal/middleware/ratelimit.go) re-purposed from a multi-tenant
// proxy API to the two operations spec.md §5 names: Compact (plus its
// FullCompact variant) and ExpireSnapshot.
/*
 * Copyright 2025 BergLoom
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rpc

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/nimtable/bergloom-go/cmn/nlog"
	"github.com/nimtable/bergloom-go/compact"
	"github.com/nimtable/bergloom-go/iceberg"
)

type Server struct {
	engine *gin.Engine
	comp   *compact.Compaction
}

func NewServer(comp *compact.Compaction) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	s := &Server{engine: r, comp: comp}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(comp.PromTracker().Registry(), promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.Use(rateLimitMiddleware(30, 10))
	v1.POST("/tables/:namespace/:name/compact", s.handleCompact)
	v1.POST("/tables/:namespace/:name/full-compact", s.handleFullCompact)
	v1.POST("/tables/:namespace/:name/expire-snapshot", s.handleExpireSnapshot)

	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Run(addr string) error { return s.engine.Run(addr) }

func identFromParams(c *gin.Context) iceberg.TableIdent {
	ns := c.Param("namespace")
	name := c.Param("name")
	var namespace []string
	if ns != "" {
		namespace = []string{ns}
	}
	return iceberg.NewTableIdent(namespace, name)
}

func (s *Server) handleCompact(c *gin.Context) {
	ident := identFromParams(c)
	snap, err := s.comp.Compact(c.Request.Context(), ident)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleFullCompact(c *gin.Context) {
	ident := identFromParams(c)
	snap, err := s.comp.FullCompact(c.Request.Context(), ident)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

type expireRequest struct {
	OlderThanSnapshotID int64 `json:"older_than_snapshot_id" binding:"required"`
}

func (s *Server) handleExpireSnapshot(c *gin.Context) {
	ident := identFromParams(c)
	var req expireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.comp.ExpireSnapshot(c.Request.Context(), ident, req.OlderThanSnapshotID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		nlog.Infof("rpc: %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// rateLimitMiddleware bounds requests per client IP, grounded on bunbase's
// middleware.RateLimitMiddleware (platform/internal/middleware/ratelimit.go):
// a per-IP golang.org/x/time/rate.Limiter map behind a mutex.
func rateLimitMiddleware(requestsPerMinute, burst int) gin.HandlerFunc {
	limit := rate.Every(time.Minute / time.Duration(requestsPerMinute))
	rl := newRateLimiter(limit, burst)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.getLimiter(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
