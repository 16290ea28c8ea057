// Package app assembles the dehost services from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/RichardoC/dehost/internal/api"
	"github.com/RichardoC/dehost/internal/config"
	"github.com/RichardoC/dehost/internal/db"
	"github.com/RichardoC/dehost/internal/deploy"
	"github.com/RichardoC/dehost/internal/domainlink"
	"github.com/RichardoC/dehost/internal/ipfs"
	"github.com/RichardoC/dehost/internal/llm"
	"github.com/RichardoC/dehost/internal/logging"
	"github.com/RichardoC/dehost/internal/paramstore"
	"github.com/RichardoC/dehost/internal/ui"
)

const shutdownTimeout = 10 * time.Second

// App owns every long-lived dependency of the server and the CLI.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *db.Database
	Uploader *ipfs.Client
	Store    *ui.Store
	Deployer *deploy.Action
	Sharer   *deploy.Sharer
	Chat     *llm.Service
}

type options struct {
	notifier deploy.Notifier
	keys     ipfs.KeySource
}

type Option func(*options)

// WithNotifier replaces the UI store as the receiver of deploy notifications.
func WithNotifier(n deploy.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithKeySource overrides the credential lookup derived from the config.
func WithKeySource(keys ipfs.KeySource) Option {
	return func(o *options) { o.keys = keys }
}

// New builds an App. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
	}

	a := &App{Config: cfg, Logger: logger, DB: database, Store: ui.NewStore()}

	keys := o.keys
	if keys == nil {
		keys, err = keySource(ctx, cfg.Lighthouse, logger)
		if err != nil {
			return nil, multierr.Append(err, a.Close())
		}
	}

	a.Uploader, err = ipfs.NewClient(keys,
		ipfs.WithUploadURL(cfg.Lighthouse.UploadURL),
		ipfs.WithTimeout(cfg.Lighthouse.Timeout),
		ipfs.WithLogger(logger.Named("ipfs")))
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}

	notifier := o.notifier
	if notifier == nil {
		notifier = a.Store
	}

	a.Deployer, err = deploy.NewAction(a.Uploader,
		deploy.WithNotifier(notifier),
		deploy.WithRecorder(database),
		deploy.WithLogger(logger.Named("deploy")),
		deploy.WithTimeout(cfg.Deploy.Timeout),
		deploy.WithFlag(a.Store.SetDeploying))
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}

	a.Sharer, err = deploy.NewSharer(a.Uploader, notifier, logger.Named("share"), cfg.Deploy.Timeout, a.Store.SetUploading)
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}

	chatOpts := []llm.Option{
		llm.WithLogger(logger.Named("llm")),
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithHistoryLimit(cfg.LLM.HistoryLimit),
	}
	if cfg.LLM.SystemPrompt != "" {
		chatOpts = append(chatOpts, llm.WithSystemPrompt(cfg.LLM.SystemPrompt))
	}
	a.Chat, err = llm.New(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, database, chatOpts...)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to initialize LLM service: %w", err), a.Close())
	}

	return a, nil
}

// keySource prefers an explicit key, then a parameter store lookup. With
// neither, uploads fail with ipfs.ErrMissingCredential.
func keySource(ctx context.Context, cfg config.LighthouseConfig, logger *zap.Logger) (ipfs.KeySource, error) {
	if cfg.APIKey != "" || cfg.APIKeyParam == "" {
		if cfg.APIKey == "" {
			logger.Warn("No Lighthouse API key configured; deploys will fail until one is set")
		}
		return ipfs.StaticKey(cfg.APIKey), nil
	}

	client, err := paramstore.NewFromDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Reading Lighthouse API key from parameter store", zap.String("param", cfg.APIKeyParam))
	return ipfs.NewParamKey(client, cfg.APIKeyParam), nil
}

// Handler returns the HTTP handler serving the API and the web assets.
func (a *App) Handler() http.Handler {
	h := api.NewHandler(api.Deps{
		DB:        a.DB,
		LLM:       a.Chat,
		Deployer:  a.Deployer,
		Sharer:    a.Sharer,
		Store:     a.Store,
		Registrar: domainlink.LogRegistrar{Logger: a.Logger.Named("domainlink")},
		Logger:    a.Logger.Named("api"),

		HistoryLimit: a.Config.Deploy.HistorySize,
	})
	return h.Router(api.RouterConfig{
		WebDir:   a.Config.Server.WebDir,
		AllowAll: a.Config.Server.AllowAll,
	})
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Starting server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("Shutting down server")
	// Closing the store first ends websocket streams so Shutdown does not wait on them.
	a.Store.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the database and UI store and flushes the logger.
func (a *App) Close() error {
	var err error
	if a.Store != nil {
		a.Store.Close()
	}
	if a.DB != nil {
		err = multierr.Append(err, a.DB.Close())
	}
	if a.Logger != nil {
		// Sync on stderr returns EINVAL on some platforms; it is not worth reporting.
		_ = a.Logger.Sync()
	}
	return err
}
