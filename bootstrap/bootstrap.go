// Package bootstrap wires the gateway together and manages its lifecycle.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulseproto/pulsegate/adapters/clock"
	gatehttp "github.com/pulseproto/pulsegate/adapters/http"
	"github.com/pulseproto/pulsegate/adapters/idgen"
	"github.com/pulseproto/pulsegate/adapters/memory"
	"github.com/pulseproto/pulsegate/adapters/metrics"
	"github.com/pulseproto/pulsegate/adapters/providers"
	"github.com/pulseproto/pulsegate/app"
	"github.com/pulseproto/pulsegate/config"
	"github.com/pulseproto/pulsegate/domain/security"
)

// defaultBaseURLs are used for well-known providers unless the config
// overrides them.
var defaultBaseURLs = map[string]string{
	"openai":    "https://api.openai.com/v1",
	"anthropic": "https://api.anthropic.com/v1",
	"binance":   "https://api.binance.com",
	"bybit":     "https://api.bybit.com",
	"kraken":    "https://api.kraken.com",
	"okx":       "https://www.okx.com",
}

// App is the assembled gateway.
type App struct {
	Logger     zerolog.Logger
	HTTPServer *http.Server
	Metrics    *metrics.Collector

	ledger  *memory.Ledger
	trail   *memory.Trail
	filter  *app.Filter
	service *app.GatewayService
	holder  *config.Holder
}

// New assembles the application from a loaded configuration.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	logger.Info().Str("version", gatehttp.Version).Msg("initializing pulsegate")

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		logger.Info().Msg("prometheus metrics enabled")
	}

	ledger := memory.NewLedger(cfg.Tiers)
	if err := registerKeys(ledger, cfg.Keys); err != nil {
		return nil, err
	}

	custom, err := compilePatterns(cfg.Security.CustomPatterns)
	if err != nil {
		return nil, err
	}
	filter := app.NewFilter(custom, collector)

	clk := clock.Real{}
	trail := memory.NewTrail(cfg.Audit.MaxEntries, clk)

	registry, err := buildRegistry(cfg.Providers)
	if err != nil {
		return nil, err
	}

	service := app.NewGatewayService(app.GatewayDeps{
		Ledger:   ledger,
		Filter:   filter,
		Trail:    trail,
		Registry: registry,
		Clock:    clk,
		IDGen:    idgen.Short{},
		Metrics:  collector,
		Logger:   logger,
	})

	handler := gatehttp.NewHandler(service, ledger, trail, filter, logger)
	routerCfg := gatehttp.RouterConfig{}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	router := gatehttp.NewRouter(handler, logger, routerCfg)

	return &App{
		Logger: logger,
		HTTPServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		Metrics: collector,
		ledger:  ledger,
		trail:   trail,
		filter:  filter,
		service: service,
	}, nil
}

// NewWithHotReload assembles the application from a config file and watches
// it for changes. Tier limits and key registrations apply on reload; the
// signature catalog and server settings require a restart.
func NewWithHotReload(path string) (*App, error) {
	holder, err := config.NewHolder(path, zerolog.New(os.Stdout).With().Timestamp().Logger())
	if err != nil {
		return nil, err
	}

	a, err := New(holder.Get())
	if err != nil {
		holder.Stop()
		return nil, err
	}
	a.holder = holder

	holder.OnChange(func(cfg *config.Config) {
		a.ledger.SetTiers(cfg.Tiers)
		if err := registerKeys(a.ledger, cfg.Keys); err != nil {
			a.Logger.Error().Err(err).Msg("key registration on reload failed")
		}
	})

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch unavailable")
	}
	holder.WatchSignals()

	return a, nil
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a server
// error, then shuts down gracefully.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func registerKeys(ledger *memory.Ledger, keys []config.KeyConfig) error {
	now := time.Now()
	for _, k := range keys {
		if err := ledger.Register(context.Background(), k.Key, k.Tier, now); err != nil {
			return fmt.Errorf("register key %q: %w", maskKey(k.Key), err)
		}
	}
	return nil
}

func compilePatterns(patterns []config.PatternConfig) ([]security.Signature, error) {
	out := make([]security.Signature, 0, len(patterns))
	for _, p := range patterns {
		sig, err := security.CompileSignature(p.Pattern, p.Category)
		if err != nil {
			return nil, fmt.Errorf("custom pattern %q: %w", p.Pattern, err)
		}
		out = append(out, sig)
	}
	return out, nil
}

// buildRegistry registers the built-in echo adapter, the well-known HTTP
// providers, and any extra providers from the config. Config entries win
// over the built-in base URLs.
func buildRegistry(extra []config.ProviderConfig) (*providers.Registry, error) {
	registry := providers.NewRegistry()
	registry.Register(providers.EchoDescriptor())

	configured := map[string]bool{}
	for _, p := range extra {
		configured[p.Name] = true
		d, err := providers.HTTPDescriptor(providers.HTTPConfig{
			Name:    p.Name,
			BaseURL: p.BaseURL,
			Timeout: p.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", p.Name, err)
		}
		registry.Register(d)
	}

	for name, baseURL := range defaultBaseURLs {
		if configured[name] {
			continue
		}
		d, err := providers.HTTPDescriptor(providers.HTTPConfig{Name: name, BaseURL: baseURL})
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		registry.Register(d)
	}

	return registry, nil
}

// maskKey keeps log lines free of full key material.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
