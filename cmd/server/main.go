package main

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	pinauth "github.com/goliatone/go-pinauth"
	"github.com/goliatone/go-router"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/migrate"
)

func main() {
	// .env is optional, real deployments use the environment directly
	_ = godotenv.Load()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("pinauth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)

	ctx := context.Background()

	db, err := openDatabase(getEnv("DB_DSN", "file:pinauth.db?cache=shared&mode=rwc"))
	if err != nil {
		lgr.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runMigrations(ctx, db); err != nil {
		lgr.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	signingKey := os.Getenv("AUTH_SIGNING_KEY")
	if signingKey == "" {
		lgr.Error("AUTH_SIGNING_KEY is required")
		os.Exit(1)
	}

	cfg := pinauth.SimpleConfig{
		SigningKey:      signingKey,
		TokenExpiration: getEnvInt("AUTH_TOKEN_EXPIRATION_HOURS", 168),
		Issuer:          getEnv("AUTH_ISSUER", "pinauth"),
		Audience:        splitList(os.Getenv("AUTH_AUDIENCE")),
	}

	repo := pinauth.NewRepositoryManager(db)

	issuer := pinauth.NewTokenIssuer(repo.AccessTokens(), cfg).
		WithLogger(lgr.GetLogger("tokens"))

	authenticator := pinauth.NewPinAuthenticator(repo, issuer).
		WithLogger(lgr.GetLogger("auth"))

	controller := pinauth.NewAuthController(pinauth.ControllerDeps{
		Repo:   repo,
		Auth:   authenticator,
		Issuer: issuer,
		Mailer: buildMailer(lgr.GetLogger("mail")),
		Logger: lgr.GetLogger("http"),
	})

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
			AppName:       "pinauth",
		}))
	})

	srv.Router().WithLogger(lgr.GetLogger("router"))

	controller.RegisterRoutes(srv.Router().Group("/v1/auth"))

	addr := getEnv("HTTP_ADDR", ":8080")
	lgr.Info("starting server", "addr", addr)

	if err := srv.Serve(addr); err != nil {
		lgr.Error("server error", "error", err)
		os.Exit(1)
	}

	waitExitSignal()
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func runMigrations(ctx context.Context, db *bun.DB) error {
	sub, err := fs.Sub(pinauth.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(sub); err != nil {
		return err
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}

	_, err = migrator.Migrate(ctx)
	return err
}

func buildMailer(logger pinauth.Logger) pinauth.Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		logger.Warn("SMTP_HOST not set, using log mailer")
		return pinauth.NewLogMailer(logger)
	}

	return pinauth.NewSMTPMailer(pinauth.SMTPConfig{
		Host:     host,
		Port:     getEnvInt("SMTP_PORT", 587),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getEnv("SMTP_FROM", "no-reply@localhost"),
	}).WithLogger(logger)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func waitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
