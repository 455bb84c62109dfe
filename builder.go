package lockana

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/lockana/cipher"
	internalaudit "github.com/MrEthical07/lockana/internal/audit"
	"github.com/MrEthical07/lockana/internal/guard"
	"github.com/MrEthical07/lockana/permission"
	"github.com/MrEthical07/lockana/store"
	"github.com/MrEthical07/lockana/token"
	"github.com/MrEthical07/lockana/totp"
)

// Builder assembles an Engine. A Builder can be used for exactly one Build.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  store.Store

	userProvider UserProvider
	auditSink    AuditSink
	universe     permission.Universe
	logger       *slog.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing counters, blocks and revocations.
// The client stays owned by the caller.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore sets a custom counter store. It takes precedence over WithRedis.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithUserProvider sets the user lookup collaborator. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the audit destination. Events are delivered asynchronously.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithPermissionUniverse sets the source of "all permissions" granted to the
// administrative role. Without it the configured permission list is used.
func (b *Builder) WithPermissionUniverse(u permission.Universe) *Builder {
	b.universe = u
	return b
}

// WithLogger sets the logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration and every collaborator, wires the components
// and starts the audit dispatcher and revocation sweeper. It fails on a second call.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	st := b.store
	if st == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or store required")
		}
		st = store.NewRedis(b.redis, cfg.Guard.KeyPrefix)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- PERMISSIONS --------
	registry := permission.NewRegistry()
	for _, p := range cfg.Permission.Permissions {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	roleManager := permission.NewRoleManager(registry)
	for roleName, perms := range cfg.Permission.Roles {
		if err := roleManager.RegisterRole(roleName, perms); err != nil {
			return nil, err
		}
	}
	roleManager.Freeze()

	universe := b.universe
	if universe == nil {
		universe = registry
	}
	resolver, err := permission.NewResolver(cfg.Permission.AdminRole, universe, roleManager)
	if err != nil {
		return nil, err
	}

	// -------- ONE-TIME CODES --------
	otp, err := totp.NewManager(totp.Config{
		Digits:          cfg.TOTP.Digits,
		SecretBytes:     cfg.TOTP.SecretBytes,
		MinSecretLength: cfg.TOTP.MinSecretLength,
		Period:          cfg.TOTP.Period,
		Skew:            cfg.TOTP.Skew,
		Algorithm:       cfg.TOTP.Algorithm,
		Issuer:          cfg.TOTP.Issuer,
	})
	if err != nil {
		return nil, err
	}

	// -------- ABUSE GUARD --------
	g, err := guard.New(st, guard.Config{
		MaxAttempts:   cfg.Guard.MaxLoginAttempts,
		BlockDuration: cfg.Guard.BlockDuration,
		AttemptWindow: cfg.Guard.AttemptWindow,
		Whitelist:     cfg.Guard.WhitelistIPs,
		Now:           b.now,
	})
	if err != nil {
		return nil, err
	}

	// -------- TOKENS --------
	method, err := token.ParseSigningMethod(cfg.Token.SigningMethod)
	if err != nil {
		return nil, err
	}
	tm, err := token.NewManager(token.Config{
		Method:     method,
		Secret:     cloneBytes(cfg.Token.SigningSecret),
		PrivateKey: cloneBytes(cfg.Token.PrivateKey),
		PublicKey:  cloneBytes(cfg.Token.PublicKey),
		TTL:        cfg.Token.AccessTTL,
		Issuer:     cfg.Token.Issuer,
		Leeway:     cfg.Token.Leeway,
		Now:        b.now,
	})
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewService(tm, g, cfg.Permission.AdminRole)
	if err != nil {
		return nil, err
	}

	// -------- CIPHER --------
	suite, err := cipher.New(cfg.Encryption.Algorithm)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		store:        st,
		guard:        g,
		otp:          otp,
		tokens:       tokens,
		resolver:     resolver,
		suite:        suite,
		cipherKey:    cloneBytes(cfg.Encryption.Key),
		userProvider: b.userProvider,
		logger:       logger,
		metrics:      NewMetrics(cfg.Metrics),
		now:          b.now,
	}
	if engine.now == nil {
		engine.now = time.Now
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:     cfg.Audit.Enabled,
		BufferSize:  cfg.Audit.BufferSize,
		DropIfFull:  cfg.Audit.DropIfFull,
		SinkTimeout: cfg.Audit.SinkTimeout,
	}, b.auditSink)
	engine.sweeper = guard.StartSweeper(g, cfg.Guard.RevocationSweepInterval, logger, func(n int64) {
		engine.metrics.Add(MetricRevocationsSwept, uint64(n))
	})
	engine.initFlows()

	b.built = true

	return engine, nil
}
