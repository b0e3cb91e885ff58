package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumenshop/storefront/internal/adapter/outbound/cel"
	"github.com/lumenshop/storefront/internal/adapter/outbound/journal"
	"github.com/lumenshop/storefront/internal/adapter/outbound/memory"
	"github.com/lumenshop/storefront/internal/adapter/outbound/persist"
	"github.com/lumenshop/storefront/internal/adapter/outbound/seed"
	"github.com/lumenshop/storefront/internal/adapter/outbound/sqlite"
	"github.com/lumenshop/storefront/internal/adapter/outbound/state"
	"github.com/lumenshop/storefront/internal/config"
	"github.com/lumenshop/storefront/internal/domain/cart"
	"github.com/lumenshop/storefront/internal/domain/checkout"
	"github.com/lumenshop/storefront/internal/port/outbound"
	"github.com/lumenshop/storefront/internal/service"
	"github.com/lumenshop/storefront/internal/telemetry"
)

// app holds the wired services shared by every command.
type app struct {
	cfg      *config.StorefrontConfig
	logger   *slog.Logger
	store    outbound.KeyValueStore
	journal  *journal.FileJournal
	catalog  *memory.CatalogStore
	registry *prometheus.Registry

	catalogs  *service.CatalogService
	carts     *service.CartService
	accounts  *service.AccountService
	checkouts *service.CheckoutService

	shutdownTelemetry telemetry.ShutdownFunc
}

// loadConfig loads and validates configuration, applying the --state and
// --dev flags.
func loadConfig() (*config.StorefrontConfig, error) {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if stateFilePath != "" {
		cfg.Storage.Path = stateFilePath
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger. One-shot commands pass quiet so that
// routine Info logs do not interleave with their output.
func newLogger(cfg *config.StorefrontConfig, quiet bool) *slog.Logger {
	level := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		level = slog.LevelDebug
	} else if quiet && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStore opens the configured key/value backend.
func openStore(ctx context.Context, cfg *config.StorefrontConfig, logger *slog.Logger) (outbound.KeyValueStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		return state.NewFileStore(cfg.Storage.Path, logger), nil
	case config.BackendSQLite:
		return sqlite.Open(ctx, cfg.Storage.Path, logger)
	case config.BackendMemory:
		return memory.NewKVStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// openApp loads configuration and wires storage, catalog and services.
// The caller must Close the returned app.
func openApp(ctx context.Context, quiet bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, quiet)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Debug("loaded config", "file", configFile)
	}

	a := &app{cfg: cfg, logger: logger}
	a.shutdownTelemetry, err = telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    "storefront",
		ServiceVersion: Version,
		Tracing:        cfg.Telemetry.Tracing,
		Metrics:        cfg.Telemetry.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	data, err := seed.Load(a.cfg.Catalog.File)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	a.catalog = memory.NewCatalogStore(data.Products, data.Categories)

	eval, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create expression evaluator: %w", err)
	}

	a.store, err = openStore(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", a.cfg.Storage.Backend, err)
	}
	a.logger.Debug("storage opened", "backend", a.cfg.Storage.Backend, "path", a.cfg.Storage.Path)

	a.registry = prometheus.NewRegistry()
	metrics := service.NewMetrics(a.registry)

	a.catalogs = service.NewCatalogService(a.catalog, eval, a.logger)
	a.carts = service.NewCartService(a.catalog, persist.NewCartRepository(a.store), cart.NewIDGenerator(), metrics, a.logger)
	if err := a.carts.Init(ctx); err != nil {
		return stateError("cart", err)
	}
	a.accounts = service.NewAccountService(persist.NewAccountRepository(a.store), metrics, a.logger)
	if err := a.accounts.Init(ctx); err != nil {
		return stateError("session", err)
	}

	calc := checkout.NewCalculator(checkout.Rates{
		Standard: a.cfg.Checkout.StandardShipping,
		Express:  a.cfg.Checkout.ExpressShipping,
		TaxRate:  a.cfg.Checkout.TaxRate,
	})
	var checkoutOpts []service.CheckoutOption
	if dir := a.cfg.OrdersDir(); dir != "" {
		a.journal, err = journal.Open(journal.Config{
			Dir:           dir,
			RetentionDays: a.cfg.Orders.RetentionDays,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("failed to open order journal: %w", err)
		}
		checkoutOpts = append(checkoutOpts, service.WithOrderJournal(a.journal))
	}
	a.checkouts = service.NewCheckoutService(a.carts, a.accounts, calc, metrics, a.logger, checkoutOpts...)
	return nil
}

func stateError(what string, err error) error {
	if errors.Is(err, state.ErrCorrupt) {
		return fmt.Errorf("failed to load %s: %w (run 'storefront reset' to start fresh)", what, err)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// Close releases the store and journal and flushes telemetry.
func (a *app) Close() error {
	var errs []error
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.shutdownTelemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errs = append(errs, a.shutdownTelemetry(ctx))
	}
	return errors.Join(errs...)
}

// withApp opens the app for a one-shot command and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app) error) (err error) {
	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
