package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/go-user-directory/config"
	"github.com/oksasatya/go-user-directory/internal/container"
)

func routeSet(e *gin.Engine) map[string]bool {
	out := map[string]bool{}
	for _, r := range e.Routes() {
		out[r.Method+" "+r.Path] = true
	}
	return out
}

func setupContainer(t *testing.T, cfg *config.Config) {
	t.Helper()
	container.Reset()
	t.Cleanup(container.Reset)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	container.SetConfig(cfg)
	container.SetLogger(logger)
}

func TestInitModulesRegistersRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupContainer(t, &config.Config{StoreDriver: "memory", DebugMetricsEnabled: true, RateLimitAllowPrivate: true})

	engine := gin.New()
	reg := NewRegistry(engine)
	InitModules(reg)
	reg.RegisterAll()

	routes := routeSet(engine)
	for _, want := range []string{
		"GET /healthz",
		"GET /readyz",
		"POST /api/user",
		"GET /api/users",
		"GET /api/users/search",
		"GET /api/user/:id",
		"PUT /api/update/user/:id",
		"DELETE /api/delete/user/:id",
		"GET /api/debug/vars",
	} {
		assert.True(t, routes[want], want)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memstats")
}

func TestDebugRoutesOffByDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupContainer(t, &config.Config{StoreDriver: "postgres"})

	engine := gin.New()
	reg := NewRegistry(engine)
	InitModules(reg)
	reg.RegisterAll()

	assert.False(t, routeSet(engine)["GET /api/debug/vars"])
}

func TestRegistryAppliesAPIMiddlewareOnlyUnderAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupContainer(t, &config.Config{StoreDriver: "memory"})

	engine := gin.New()
	reg := NewRegistry(engine)
	reg.Use(func(c *gin.Context) {
		c.Header("X-API", "1")
		c.Next()
	})
	InitModules(reg)
	reg.RegisterAll()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	assert.Equal(t, "1", w.Header().Get("X-API"))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, w.Header().Get("X-API"))
}
