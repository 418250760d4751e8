// Command blogauth-server serves the blog identity API over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	blogAuth "github.com/MrEthical07/blogAuth"
	"github.com/MrEthical07/blogAuth/httpapi"
	"github.com/MrEthical07/blogAuth/internal/appconfig"
	"github.com/MrEthical07/blogAuth/kv"
	"github.com/MrEthical07/blogAuth/kv/etcdstore"
	"github.com/MrEthical07/blogAuth/kv/redisstore"
	promexport "github.com/MrEthical07/blogAuth/metrics/export/prometheus"
	"github.com/MrEthical07/blogAuth/providers"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type closableStore interface {
	kv.Store
	Close() error
}

func main() {
	var (
		envFile    = flag.String("env", ".env", "dotenv file with secrets")
		configPath = flag.String("config", "", "YAML config file (default $BLOGAUTH_CONFIG)")
		promote    = flag.String("promote", "", "grant admin to this super-admin username and exit")
	)
	flag.Parse()

	cfg, err := appconfig.Load(*envFile, *configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	logger.Info("starting blogauth-server", "config", cfg.String())

	if err := run(cfg, logger, *promote); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *appconfig.Config, logger *slog.Logger, promote string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("store connected", "backend", cfg.Store.Backend)

	builder := blogAuth.New().
		WithConfig(cfg.Engine()).
		WithStore(store).
		WithLogger(logger).
		WithAuditSink(blogAuth.NewSlogSink(logger).WithContextAttrs(httpapi.RequestAttrs))
	if cfg.CaptchaSecret != "" {
		builder.WithCaptcha(providers.NewTurnstile(cfg.CaptchaSecret))
	}
	if cfg.EmailCheckAPIKey != "" {
		builder.WithEmailChecker(providers.NewAbstractEmailChecker(cfg.EmailCheckAPIKey))
	}
	if cfg.MailAPIKey != "" {
		builder.WithMailer(providers.NewResend(cfg.MailAPIKey))
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("security posture",
		"signing", report.SigningAlgorithm,
		"captcha", report.CaptchaEnforced,
		"email_verification", report.EmailVerificationActive,
		"super_admins", report.SuperAdmins,
	)
	for _, w := range report.Warnings {
		logger.Warn("security posture", "warning", w)
	}

	if promote != "" {
		user, err := engine.PromoteSuperAdmin(ctx, promote)
		if err != nil {
			return err
		}
		logger.Info("promoted super-admin", "username", user.Username)
		return nil
	}

	opts := httpapi.Options{
		Logger:            logger,
		RequestTimeout:    cfg.Server.RequestTimeout,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	}
	if cfg.Metrics.Enabled {
		exporter, err := promexport.NewExporter(engine)
		if err != nil {
			return err
		}
		exporter.Registry().MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts.MetricsHandler = exporter.Handler()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpapi.NewRouter(engine, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg appconfig.StoreConfig) (closableStore, error) {
	switch cfg.Backend {
	case appconfig.BackendEtcd:
		return etcdstore.New(ctx, etcdstore.Config{
			Endpoints:   cfg.EtcdEndpoints,
			DialTimeout: cfg.DialTimeout,
			Prefix:      cfg.Namespace + "/",
		})
	default:
		return redisstore.NewFromURL(ctx, cfg.RedisURL, cfg.Namespace)
	}
}
