// Command lockana runs the lockana HTTP server and its maintenance tasks.
//
// Usage:
//
//	lockana [-config lockana.toml] serve
//	lockana [-config lockana.toml] migrate
//	lockana [-config lockana.toml] add-user -username alice [-role admin] [-secret BASE32]
//
// Secrets come from the environment (LOCKANA_JWT_SECRET, LOCKANA_ENCRYPTION_KEY,
// LOCKANA_REDIS_PASSWORD, LOCKANA_DATABASE_DSN) or key_file in the config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/MrEthical07/lockana"
	"github.com/MrEthical07/lockana/errs"
	"github.com/MrEthical07/lockana/internal/httpapi"
	"github.com/MrEthical07/lockana/internal/logger"
	otelexport "github.com/MrEthical07/lockana/metrics/export/otel"
	promexport "github.com/MrEthical07/lockana/metrics/export/prometheus"
	"github.com/MrEthical07/lockana/middleware"
	"github.com/MrEthical07/lockana/sqlstore"
	"github.com/MrEthical07/lockana/vault"
)

var _ vault.Sealer = (*lockana.Engine)(nil)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "lockana:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("lockana", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("LOCKANA_CONFIG"), "path to TOML config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := lockana.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.SetupDefault(stdout, logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := "serve"
	rest := fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	switch cmd {
	case "serve":
		return runServe(ctx, cfg, log)
	case "migrate":
		return runMigrate(ctx, cfg, log)
	case "add-user":
		return runAddUser(ctx, cfg, log, rest, stdout)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func openStore(ctx context.Context, cfg lockana.Config, log *slog.Logger) (*sqlstore.Store, error) {
	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := seedCatalog(ctx, store, cfg.Permission); err != nil {
		store.Close()
		return nil, fmt.Errorf("seed permissions: %w", err)
	}
	return store, nil
}

// seedCatalog makes sure the configured permissions and roles exist in the database.
func seedCatalog(ctx context.Context, store *sqlstore.Store, pc lockana.PermissionConfig) error {
	for _, p := range pc.Permissions {
		if err := store.CreatePermission(ctx, p); err != nil && !errors.Is(err, sqlstore.ErrPermissionExists) {
			return err
		}
	}

	roles := []string{pc.AdminRole, pc.DefaultRole}
	for name := range pc.Roles {
		roles = append(roles, name)
	}
	for _, name := range roles {
		if err := store.CreateRole(ctx, name); err != nil && !errors.Is(err, sqlstore.ErrRoleExists) {
			return err
		}
	}

	for name, perms := range pc.Roles {
		for _, p := range perms {
			if err := store.GrantPermission(ctx, name, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func buildEngine(cfg lockana.Config, rdb redis.UniversalClient, store *sqlstore.Store, log *slog.Logger) (*lockana.Engine, error) {
	return lockana.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(store).
		WithAuditSink(lockana.MultiSink{store, lockana.NewLoggerSink(log)}).
		WithPermissionUniverse(store).
		WithLogger(log).
		Build()
}

func newRedis(cfg lockana.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
}

func runServe(ctx context.Context, cfg lockana.Config, log *slog.Logger) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	rdb := newRedis(cfg.Redis)
	defer rdb.Close()

	engine, err := buildEngine(cfg, rdb, store, log)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	if err := engine.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	vaultSvc, err := vault.NewService(store, engine, log)
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	defer limiter.Stop()

	deps := httpapi.Deps{
		Engine:       engine,
		Vault:        vaultSvc,
		Admin:        store,
		Logger:       log,
		LoginLimiter: limiter,
		TrustProxy:   cfg.Server.TrustProxy,
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = promexport.NewCollector(engine).Handler()

		// Observed through whatever MeterProvider the process installs; no-op otherwise.
		exp, err := otelexport.NewExporter(otel.GetMeterProvider().Meter("github.com/MrEthical07/lockana"), engine)
		if err != nil {
			return fmt.Errorf("otel exporter: %w", err)
		}
		defer func() { _ = exp.Close() }()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpapi.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("addr", srv.Addr), slog.String("cipher", engine.CipherName()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("stopped", slog.Uint64("audit_dropped", engine.AuditDropped()))
	return nil
}

func runMigrate(ctx context.Context, cfg lockana.Config, log *slog.Logger) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("database migrated", slog.String("driver", cfg.Database.Driver))
	return nil
}

func runAddUser(ctx context.Context, cfg lockana.Config, log *slog.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("add-user", flag.ContinueOnError)
	username := fs.String("username", "", "username (required)")
	role := fs.String("role", cfg.Permission.DefaultRole, "role to assign")
	secret := fs.String("secret", "", "base32 one-time-code secret; generated when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return errors.New("add-user: -username is required")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	rdb := newRedis(cfg.Redis)
	defer rdb.Close()
	engine, err := buildEngine(cfg, rdb, store, log)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	if *secret == "" {
		if *secret, err = engine.CreateSecret(); err != nil {
			return err
		}
	}
	if _, err := store.CreateUser(ctx, *username, *secret); err != nil {
		_, msg := errs.Public(err)
		return fmt.Errorf("add-user: %s", msg)
	}
	if err := store.AssignRole(ctx, *username, *role); err != nil {
		return fmt.Errorf("add-user: assign role: %w", err)
	}
	uri, err := engine.ProvisionURI(*username, *secret)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "user %s added with role %s\nsecret: %s\nuri: %s\n", *username, *role, *secret, uri)
	return nil
}
