package shopAuth

import (
	"errors"

	"github.com/MrEthical07/shopAuth/internal/rate"
	"github.com/MrEthical07/shopAuth/jwt"
	"github.com/MrEthical07/shopAuth/password"
	"github.com/MrEthical07/shopAuth/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. Every collaborator is injected here; the
// engine never reaches for package-level state.
//
// A Builder is single-use: the second call to Build fails.
type Builder struct {
	config Config

	records   store.RecordStore
	notifier  Notifier
	logger    *zap.Logger
	redis     redis.UniversalClient
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Byte slices are copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRecordStore sets the persistence backend. Required.
func (b *Builder) WithRecordStore(rs store.RecordStore) *Builder {
	b.records = rs
	return b
}

// WithNotifier sets the OTP delivery channel. Required.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithLogger sets the logger for best-effort failures such as undelivered
// OTPs. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithRedis supplies the client used by the OTP send throttle. Only needed
// when OTP.SendLimit is enabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets where audit events go when Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the OTP verification latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.records == nil {
		return nil, errors.New("record store required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}
	if cfg.OTP.SendLimit.Enabled && b.redis == nil {
		return nil, errors.New("OTP SendLimit requires redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config:      cloneConfig(cfg),
		collections: CollectionsFor(cfg),
		records:     b.records,
		notifier:    b.notifier,
		logger:      logger.Named("shopauth"),
		metrics:     NewMetrics(cfg.Metrics),
	}

	if cfg.OTP.SendLimit.Enabled {
		engine.sendLimiter = rate.New(b.redis, rate.Config{
			MaxSends: cfg.OTP.SendLimit.MaxSends,
			Window:   cfg.OTP.SendLimit.Window,
			Prefix:   cfg.OTP.SendLimit.RedisPrefix,
		})
	}

	ph, err := password.NewHasher(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	if cfg.Grant.Enabled {
		jm, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.Grant.TTL,
			SigningMethod: jwt.SigningMethod(cfg.Grant.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Grant.PrivateKey),
			PublicKey:     cloneBytes(cfg.Grant.PublicKey),
			Issuer:        cfg.Grant.Issuer,
			Audience:      cfg.Grant.Audience,
			KeyID:         cfg.Grant.KeyID,
		})
		if err != nil {
			return nil, err
		}
		engine.grants = jm
	}

	// Started last so a failed Build leaves no goroutine behind.
	engine.audit = newAuditQueue(cfg.Audit, b.auditSink)

	b.built = true

	return engine, nil
}
