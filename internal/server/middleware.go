package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/glazeops/internal/audit/domain"
	authdomain "github.com/smallbiznis/glazeops/internal/auth/domain"
	obscontext "github.com/smallbiznis/glazeops/internal/observability/context"
	"github.com/smallbiznis/glazeops/internal/observability/logger"
	"go.uber.org/zap"
)

const contextPrincipalKey = "principal"

type corsConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       time.Duration
}

// publicCORSConfig matches the headers the booking page sends.
func publicCORSConfig() corsConfig {
	return corsConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"POST", "OPTIONS"},
		AllowHeaders: []string{"authorization", "x-client-info", "apikey", "content-type"},
		MaxAge:       12 * time.Hour,
	}
}

func (s *Server) apiCORSConfig() corsConfig {
	return corsConfig{
		AllowOrigins: s.cfg.CORSAllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-Id", "Accept", "Cache-Control"},
		MaxAge:       12 * time.Hour,
	}
}

// CORS answers preflight requests with 204 and decorates every other
// response. Origins outside the allow list get no CORS headers.
func CORS(cfg corsConfig) gin.HandlerFunc {
	wildcard := slices.Contains(cfg.AllowOrigins, "*")
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := true
		switch {
		case wildcard:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(cfg.AllowOrigins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		default:
			allowed = false
		}
		if allowed {
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Expose-Headers", "X-Request-Id")
		}

		if c.Request.Method == http.MethodOptions {
			if allowed {
				c.Header("Access-Control-Max-Age", maxAge)
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// AuthRequired resolves the bearer access token into a principal and records
// the caller as the request actor for audit entries.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeAdmin), principal.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextPrincipalKey, principal)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func principalFromContext(c *gin.Context) (*authdomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*authdomain.Principal)
	if !ok || principal == nil {
		return nil, false
	}
	return principal, true
}

func currentUserID(c *gin.Context) *snowflake.ID {
	principal, ok := principalFromContext(c)
	if !ok || principal.UserID == 0 {
		return nil
	}
	id := principal.UserID
	return &id
}

// PublicRateLimit throttles anonymous endpoints per client IP with the Redis
// token bucket. Without Redis the limit is not enforced.
func (s *Server) PublicRateLimit(name string, rate float64, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "ratelimit:public:" + name + ":" + c.ClientIP()
		result, err := s.limiter.Allow(ctx, key, rate, burst)
		if err != nil {
			logger.FromContext(ctx).Warn("public rate limit check failed", zap.String("endpoint", name), zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds()) + 1
			logger.FromContext(ctx).Warn("public rate limit exceeded",
				zap.String("endpoint", name),
				zap.String("client_ip", c.ClientIP()),
			)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
