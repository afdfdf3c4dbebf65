package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-user-directory/config"
	userapp "github.com/oksasatya/go-user-directory/internal/application"
	pginfra "github.com/oksasatya/go-user-directory/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-directory/pkg/apperror"
	"github.com/oksasatya/go-user-directory/pkg/helpers"
)

var sampleUsers = []userapp.CreateUserInput{
	{Name: "Ada Lovelace", Email: "ada@example.com", Address: "12 St James Square, London"},
	{Name: "Alan Turing", Email: "alan@example.com", Address: "78 High Street, Wilmslow"},
	{Name: "Grace Hopper", Email: "grace@example.com", Address: "1600 Navy Yard, Arlington"},
	{Name: "Katherine Johnson", Email: "katherine@example.com", Address: "4 Langley Road, Hampton"},
	{Name: "Edsger Dijkstra", Email: "edsger@example.com", Address: "Nuenen 10, Eindhoven"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2})
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	svc := userapp.NewService(pginfra.NewUserRepository(pool), nil, logger)
	created, skipped := 0, 0
	for _, in := range sampleUsers {
		u, err := svc.Create(ctx, in)
		switch {
		case err == nil:
			created++
			logger.WithField("user_id", u.ID).WithField("email", u.Email).Info("seeded user")
		case apperror.Is(err, apperror.KindConflict):
			skipped++
		default:
			logger.WithError(err).WithField("email", in.Email).Fatal("failed to seed user")
		}
	}
	logger.WithField("created", created).WithField("skipped", skipped).Info("seed complete")
}
