package http

import (
	"closer_scheduling_backend/platform/config"
	"closer_scheduling_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that mounts its own routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the shared route groups into RegisterRoutes.
// Protected requires a valid access token; Admin additionally the admin role.
type RouterContext struct {
	Engine    *gin.Engine
	V1        *gin.RouterGroup
	Protected *gin.RouterGroup
	Admin     *gin.RouterGroup
	Config    config.JWTConfig
	// BookingRateLimiter throttles booking mutations per client IP. May be nil.
	BookingRateLimiter *httpkit.IPRateLimiter
}

// MutationMiddleware returns the middleware chain for write endpoints.
func (rc *RouterContext) MutationMiddleware() []gin.HandlerFunc {
	if rc.BookingRateLimiter == nil {
		return nil
	}
	return []gin.HandlerFunc{rc.BookingRateLimiter.RateLimit()}
}
