// Package http is the thin REST adapter over the memory engine: a small
// gin-gonic/gin router exposing remember/recall/context/forget/stats,
// grounded on the teacher's plugin/route/search handler shape, generalized
// from conversation search to memory recall. It carries no auth of its own
// — tenant/agent identity is taken at face value from request headers, per
// the engine's "carries identifiers, does not enforce policy" scope.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/memorai/memoraid/internal/engine"
	"github.com/memorai/memoraid/internal/model"
)

const tenantHeader = "X-Tenant-ID"
const agentHeader = "X-Agent-ID"

// NewRouter builds a gin.Engine exposing the memory engine's operations.
// Extra middleware (e.g. CORS) is applied ahead of the built-in recovery and
// metrics middleware and before any route is registered, so it runs for
// every request. The caller is responsible for starting the listener.
func NewRouter(eng *engine.Engine, middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	for _, mw := range middleware {
		r.Use(mw)
	}
	r.Use(gin.Recovery())
	r.Use(MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(MetricsHandler()))

	v1 := r.Group("/v1")
	v1.POST("/memories", remember(eng))
	v1.POST("/memories/search", recall(eng))
	v1.GET("/memories/context", getContext(eng))
	v1.DELETE("/memories/:id", forget(eng))
	v1.GET("/stats", stats(eng))

	return r
}

func tenantID(c *gin.Context) string {
	return c.GetHeader(tenantHeader)
}

type rememberRequest struct {
	Content         string                 `json:"content" binding:"required"`
	Type            string                 `json:"type"`
	Tags            []string               `json:"tags"`
	Context         map[string]interface{} `json:"context"`
	Importance      *float64               `json:"importance"`
	EmotionalWeight *float64               `json:"emotional_weight"`
	TTLSeconds      int64                  `json:"ttl_seconds"`
}

func remember(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rememberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := eng.Remember(c.Request.Context(), req.Content, tenantID(c), c.GetHeader(agentHeader), engine.RememberOptions{
			Type:            model.MemoryType(req.Type),
			Tags:            req.Tags,
			Context:         req.Context,
			Importance:      req.Importance,
			EmotionalWeight: req.EmotionalWeight,
			TTLSeconds:      req.TTLSeconds,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

type recallRequest struct {
	Query     string   `json:"query" binding:"required"`
	Type      string   `json:"type"`
	Limit     *int     `json:"limit"`
	Threshold *float64 `json:"threshold"`
	TimeDecay bool     `json:"time_decay"`
}

func recall(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recallRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp, err := eng.Recall(c.Request.Context(), req.Query, tenantID(c), engine.RecallOptions{
			AgentID:   c.GetHeader(agentHeader),
			Type:      model.MemoryType(req.Type),
			Limit:     req.Limit,
			Threshold: req.Threshold,
			TimeDecay: req.TimeDecay,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": resp.Results, "partial": resp.Partial})
	}
}

func getContext(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		max := 10
		if v := c.Query("max"); v != "" {
			if n, err := parsePositiveInt(v); err == nil {
				max = n
			}
		}
		ctx, err := eng.GetContext(c.Request.Context(), tenantID(c), c.GetHeader(agentHeader), max)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, ctx)
	}
}

func forget(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := eng.Forget(c.Request.Context(), tenantID(c), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "memory not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func stats(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := eng.GetStats(c.Request.Context(), tenantID(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func writeError(c *gin.Context, err error) {
	var invalid *model.InvalidContentError
	var notInit *model.NotInitializedError
	var notFound *model.NotFoundError
	var overloaded *model.OverloadedError
	var cancelled *model.CancelledError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &overloaded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.As(err, &cancelled):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
	case errors.As(err, &notInit):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("not a number")
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, errors.New("must be positive")
	}
	return n, nil
}
