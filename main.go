package main

import (
	"context"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fintrack-app/backend/internal/config"
	"github.com/fintrack-app/backend/internal/controllers"
	"github.com/fintrack-app/backend/internal/events"
	"github.com/fintrack-app/backend/internal/exchange"
	"github.com/fintrack-app/backend/internal/money"
	"github.com/fintrack-app/backend/internal/remote"
	"github.com/fintrack-app/backend/internal/remote/local"
	"github.com/fintrack-app/backend/internal/retry"
	"github.com/fintrack-app/backend/internal/router"
	"github.com/fintrack-app/backend/internal/services"
	"github.com/fintrack-app/backend/internal/session"
)

func main() {
	// gin uses debug as the default mode, we use release for
	// security reasons
	ginMode, ok := os.LookupEnv("GIN_MODE")
	if !ok {
		gin.SetMode("release")
	} else {
		gin.SetMode(ginMode)
	}

	// Log format can be explicitly set.
	// If it is not set, it defaults to human readable for development
	// and JSON for release
	logFormat, ok := os.LookupEnv("LOG_FORMAT")
	output := io.Writer(os.Stdout)
	if (!ok && gin.IsDebugging()) || (ok && logFormat == "human") {
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if gin.IsDebugging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(output).With().Timestamp().Logger()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Msg(err.Error())
	}

	var store remote.Store
	var auth remote.Auth

	if cfg.Local() {
		log.Info().Str("path", cfg.DBPath).Msg("DB_PATH is set, using the embedded database")

		localStore, err := local.Open(cfg.DBPath)
		if err != nil {
			log.Fatal().Msg(err.Error())
		}

		store = localStore
		auth = local.Auth{}
	} else {
		client, err := remote.NewClient(remote.ClientConfig{
			BaseURL: cfg.RemoteURL,
			APIKey:  cfg.RemoteAPIKey,
		})
		if err != nil {
			log.Fatal().Msg(err.Error())
		}

		// Seed the session from the refresh token. Failing here is fine: the
		// guard refuses data operations until a session exists.
		if cfg.RefreshToken != "" {
			if _, err := client.Refresh(context.Background(), cfg.RefreshToken); err != nil {
				log.Warn().Err(err).Msg("could not seed session from refresh token")
			}
		}

		store = client
		auth = client
	}

	if err := router.RegisterPrometheusMetrics(); err != nil {
		log.Fatal().Msg(err.Error())
	}

	deps := services.Dependencies{
		Store:    store,
		Guard:    session.NewGuard(auth, nil),
		Executor: retry.New(),
		Bus:      events.NewBus(),
	}

	transactions := services.NewTransactionService(deps)
	categories := services.NewCategoryService(deps, transactions)
	templates := services.NewTemplateService(deps)

	co := controllers.Controller{
		Transactions: transactions,
		Categories:   categories,
		Templates:    templates,
		Importer:     exchange.NewImporter(transactions),
		Bus:          deps.Bus,
		Money:        money.NewFormatter(cfg.Currency),
	}

	r, err := router.Config()
	if err != nil {
		log.Fatal().Msg(err.Error())
	}
	router.AttachRoutes(co, r.Group("/"))

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Msg(err.Error())
	}
}
