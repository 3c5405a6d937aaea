package auth

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"LIMS-backend/internal/platform/apierr"
)

const (
	CtxUserIDKey = "user_id"
	CtxRoleKey   = "role"
	CtxEmailKey  = "email"

	CookieName = "lims_token"
)

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apierr.Body(apierr.CodeUnauthorized, msg))
}

func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}

// RequireAuth accepts a Bearer token or the session cookie and puts
// user id, email and role on the context.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			unauthorized(c, "missing token")
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || token == nil || !token.Valid {
			unauthorized(c, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "invalid claims")
			return
		}
		sub, _ := claims["sub"].(string)
		id, err := strconv.ParseUint(sub, 10, 64)
		if err != nil || id == 0 {
			unauthorized(c, "invalid sub")
			return
		}
		role, _ := claims["role"].(string)
		email, _ := claims["email"].(string)

		c.Set(CtxUserIDKey, id)
		c.Set(CtxRoleKey, role)
		c.Set(CtxEmailKey, email)
		c.Next()
	}
}

func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		if r != "" {
			roleSet[r] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		role := c.GetString(CtxRoleKey)
		if _, allowed := roleSet[role]; !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, apierr.Body(apierr.CodeForbidden, "forbidden"))
			return
		}
		c.Next()
	}
}

// UserID is the authenticated user, 0 outside RequireAuth.
func UserID(c *gin.Context) uint64 {
	v, _ := c.Get(CtxUserIDKey)
	id, _ := v.(uint64)
	return id
}

// Actor names the caller for audit columns.
func Actor(c *gin.Context) string {
	if e := c.GetString(CtxEmailKey); e != "" {
		return e
	}
	return "system"
}

// IPLimiter is a token bucket per client IP for login and registration.
type IPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func NewIPLimiter(perMinute int) *IPLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &IPLimiter{
		limiters: map[string]*rate.Limiter{},
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

func (l *IPLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[ip] = lim
	}
	return lim
}

func (l *IPLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierr.Body(apierr.CodeTooManyRequests, "too many attempts, try again later"))
			return
		}
		c.Next()
	}
}
