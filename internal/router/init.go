package router

import (
	"github.com/sirupsen/logrus"

	appuser "github.com/oksasatya/go-user-directory/internal/application"
	"github.com/oksasatya/go-user-directory/internal/container"
	repouser "github.com/oksasatya/go-user-directory/internal/domain/repository"
	"github.com/oksasatya/go-user-directory/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-user-directory/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-directory/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-user-directory/internal/interface/http"
	"github.com/oksasatya/go-user-directory/internal/interface/middleware"
	"github.com/oksasatya/go-user-directory/internal/router/modules"
)

type UserModuleDeps struct {
	Repo    repouser.UserRepository
	Service *appuser.Service
	Handler *handlers.UserHandler
	Health  *handlers.HealthHandler
}

// Options tunes how modules are mounted. The zero value mounts the user and
// health modules without rate limiting or debug endpoints.
type Options struct {
	Limiter             modules.LimiterConfig
	DebugMetricsEnabled bool
}

// NewUserDeps builds the user service stack over repo. indexer may be nil.
func NewUserDeps(repo repouser.UserRepository, indexer appuser.UserIndexer, logger *logrus.Logger) UserModuleDeps {
	service := appuser.NewService(repo, indexer, logger)
	return UserModuleDeps{
		Repo:    repo,
		Service: service,
		Handler: handlers.NewUserHandler(service, logger),
		Health:  handlers.NewHealthHandler(service, logger),
	}
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	var repo repouser.UserRepository
	if !cfg.UsePostgres() || container.GetPGPool() == nil {
		repo = memory.NewUserRepository()
	} else {
		repo = pginfra.NewUserRepository(container.GetPGPool())
	}

	var indexer appuser.UserIndexer
	if es := container.GetES(); es != nil {
		indexer = search.NewUserIndex(es, cfg.ESUsersIndex)
	}
	return NewUserDeps(repo, indexer, logger)
}

// Install adds the application modules for deps to the registry.
func Install(r *Registry, deps UserModuleDeps, opts Options) {
	r.AddRoot(modules.NewHealthModule(deps.Health))
	r.Add(modules.NewUserModule(deps.Handler, opts.Limiter))
	if opts.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(opts.Limiter.Redis))
	}
}

// InitModules wires all modules from the container. Call once at startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	limiter := modules.LimiterConfig{Redis: container.GetRedis(), PerMinute: cfg.RateLimitPerMinute}
	if cfg.RateLimitAllowPrivate {
		limiter.Allow = middleware.AllowPrivateIP()
	}
	Install(r, buildUserDeps(), Options{Limiter: limiter, DebugMetricsEnabled: cfg.DebugMetricsEnabled})
}
