// Package bootstrap wires configuration, storage, the security domains
// and the transports into a running server, and owns graceful shutdown.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/assistant"
	domainauth "github.com/JoseDiazCodes/LibertyLM/internal/domain/auth"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/credentials"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/diagram"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/eventbus"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/guard"
	guardstore "github.com/JoseDiazCodes/LibertyLM/internal/domain/guard/store"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/llm"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/project"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/vault"
	platformconfig "github.com/JoseDiazCodes/LibertyLM/internal/platform/config"
	platformerrors "github.com/JoseDiazCodes/LibertyLM/internal/platform/errors"
	platformlogging "github.com/JoseDiazCodes/LibertyLM/internal/platform/logging"
	platformstorage "github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
	httptransport "github.com/JoseDiazCodes/LibertyLM/internal/transport/http"
	wstransport "github.com/JoseDiazCodes/LibertyLM/internal/transport/ws"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Run starts the whole service lifecycle: load configuration,
// initialise dependencies, serve, and shut down cleanly on SIGINT or
// SIGTERM.
func Run(ctx context.Context) error {
	loaded, err := platformconfig.NewLoader().Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.config", "load configuration", err)
	}
	cfg := loaded.Config

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: cfg.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.logging", "init logger", err)
	}
	defer logger.Close()

	logger.InfoTag("BOOT", "starting libertylm-server", "version", Version)

	db, err := platformstorage.Open(cfg.Storage.DSN)
	if err != nil {
		return err
	}

	failureStore, err := guardstore.New(guardstore.Config{
		Driver: cfg.Guard.Store.Driver,
		Redis: &guardstore.RedisConfig{
			Addr:     cfg.Guard.Store.Redis.Addr,
			Username: cfg.Guard.Store.Redis.Username,
			Password: cfg.Guard.Store.Redis.Password,
			DB:       cfg.Guard.Store.Redis.DB,
			Prefix:   cfg.Guard.Store.Redis.Prefix,
		},
		SQLite: &guardstore.SQLiteConfig{DSN: cfg.Guard.Store.SQLite.DSN},
	}, guardstore.Dependencies{SQLiteDB: db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.guard", "init failure store", err)
	}
	defer func() {
		if err := failureStore.Close(context.Background()); err != nil {
			logger.WarnTag("BOOT", "failure store close", "error", err.Error())
		}
	}()

	tracker := guard.NewFailureTracker(failureStore, guard.TrackerConfig{
		Window:      cfg.Guard.LockoutWindow.Std(),
		MaxAttempts: cfg.Guard.MaxAttempts,
	})

	authService, err := domainauth.NewService(domainauth.Options{
		DB:       db,
		Tracker:  tracker,
		Logger:   logger,
		Secret:   cfg.Server.JWTSecret,
		TokenTTL: cfg.Server.TokenTTL.Std(),
	})
	if err != nil {
		return err
	}

	credVault := vault.New(cfg.Vault.Fingerprint)
	logger.InfoTag("VAULT", "credential vault ready")

	llmCfg, ok := cfg.LLM[cfg.Selected.LLM]
	if !ok {
		return platformerrors.New(platformerrors.KindBootstrap, "bootstrap.llm",
			fmt.Sprintf("selected LLM %q not configured", cfg.Selected.LLM))
	}
	provider, err := llm.New(llmCfg)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.llm", "init provider", err)
	}
	logger.InfoTag("LLM", "provider ready", "model", provider.ModelName())

	credService := credentials.NewService(db, credVault, logger)
	projectService := project.NewService(db, cfg.Upload, logger)
	assistantService := assistant.NewService(db, provider, logger)
	diagramService := diagram.NewService(db, provider, credService, llmCfg, logger)

	router, err := httptransport.Build(httptransport.Options{
		Config:         cfg,
		Logger:         logger,
		AuthMiddleware: httptransport.AuthMiddleware(authService),
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.http", "build router", err)
	}

	httptransport.NewUserService(authService, logger).Register(router.API, router.Secured)
	httptransport.NewCredentialService(credService, logger).Register(router.Secured)
	httptransport.NewProjectService(projectService, diagramService, logger).Register(router.Secured)
	httptransport.NewChatService(assistantService, logger).Register(router.Secured)
	httptransport.NewSystemService(logger, Version).Register(router.API, router.Secured)
	wstransport.NewService(assistantService, authService, cfg.Guard, logger).Register(router.Engine)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.IP, cfg.Server.Port),
		Handler: router.Engine,
	}

	group, groupCtx := errgroup.WithContext(signalCtx)
	group.Go(func() error {
		logger.InfoTag("BOOT", "http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.serve", "http server", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.InfoTag("BOOT", "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.shutdown", "http shutdown", err)
		}
		return nil
	})

	err = group.Wait()
	eventbus.Shutdown()
	logger.InfoTag("BOOT", "stopped")
	return err
}
