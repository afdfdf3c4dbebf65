package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-user-directory/internal/interface/http"
	"github.com/oksasatya/go-user-directory/internal/interface/middleware"
)

// LimiterConfig is the per-IP budget applied to the user routes. A nil Redis
// or zero PerMinute disables limiting.
type LimiterConfig struct {
	Redis     *redis.Client
	PerMinute int
	Allow     middleware.AllowFunc
}

// UserModule mounts the user directory routes:
//
//	POST   /user
//	GET    /users
//	GET    /users/search
//	GET    /user/:id
//	PUT    /update/user/:id
//	DELETE /delete/user/:id
type UserModule struct {
	Handler *handlers.UserHandler
	Limiter LimiterConfig
}

func NewUserModule(h *handlers.UserHandler, limiter LimiterConfig) *UserModule {
	return &UserModule{Handler: h, Limiter: limiter}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	l := m.Limiter
	users := rg.Group("")
	users.Use(middleware.RateLimit(l.Redis, l.PerMinute, time.Minute, middleware.KeyByIP(), l.Allow))

	// search hits the index, keep it on a tighter per-route budget
	searchLimiter := middleware.RateLimit(l.Redis, l.PerMinute/2, time.Minute, middleware.KeyByIPAndPath(), l.Allow)

	users.POST("/user", m.Handler.Create)
	users.GET("/users", m.Handler.List)
	users.GET("/users/search", searchLimiter, m.Handler.Search)
	users.GET("/user/:id", m.Handler.GetByID)
	users.PUT("/update/user/:id", m.Handler.Update)
	users.DELETE("/delete/user/:id", m.Handler.Delete)
}
