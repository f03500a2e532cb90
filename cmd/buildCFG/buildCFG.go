package buildCFG

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"certify/internal/auth"
	"certify/internal/mailer"
	"certify/internal/qrcode"
	"certify/internal/storage"
)

// Source is the subset of *config.Config used here.
type Source interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
}

type ServerConfig struct {
	Port            string
	GinMode         string
	BaseURL         string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	VerifyRateLimit int64
	VerifyWindow    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type RabbitConfig struct {
	Enabled  bool
	Url      string
	Exchange string
	Queue    string
}

func BuildServerConfig(cfg Source, log *zerolog.Logger) ServerConfig {
	sc := ServerConfig{
		Port:            cfg.GetString("server.port"),
		GinMode:         cfg.GetString("server.gin_mode"),
		BaseURL:         strings.TrimRight(cfg.GetString("server.base_url"), "/"),
		MaxUploadBytes:  int64(cfg.GetInt("server.max_upload_mb")) << 20,
		ShutdownTimeout: duration(cfg, log, "server.shutdown_timeout", 10*time.Second),
		CORSOrigins:     list(cfg.GetString("server.cors_origins")),
		VerifyRateLimit: int64(cfg.GetInt("server.verify_rate_limit")),
		VerifyWindow:    duration(cfg, log, "server.verify_rate_window", time.Minute),
	}
	if sc.Port == "" {
		sc.Port = "8080"
	}
	if sc.GinMode == "" {
		sc.GinMode = "release"
	}
	if sc.BaseURL == "" {
		sc.BaseURL = "http://localhost:" + sc.Port
		log.Warn().Str("base_url", sc.BaseURL).Msg("server.base_url is not set, verification links will point to localhost")
	}
	if sc.MaxUploadBytes <= 0 {
		sc.MaxUploadBytes = 10 << 20
	}
	return sc
}

func BuildDBConfig(cfg Source, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	master := cfg.GetString("postgres.master_dsn")
	if master == "" {
		return "", nil, nil, errors.New("postgres.master_dsn is required")
	}
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("postgres.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("postgres.max_idle_conns"),
		ConnMaxLifetime: duration(cfg, log, "postgres.conn_max_lifetime", 30*time.Minute),
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	return master, list(cfg.GetString("postgres.slave_dsns")), opts, nil
}

func BuildRedisConfig(cfg Source, log *zerolog.Logger) RedisConfig {
	return RedisConfig{
		Addr:     cfg.GetString("redis.addr"),
		Password: cfg.GetString("redis.password"),
		DB:       cfg.GetInt("redis.db"),
		CacheTTL: duration(cfg, log, "redis.cache_ttl", 10*time.Minute),
	}
}

func BuildRabbitConfig(cfg Source, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Enabled:  cfg.GetBool("rabbit.enabled"),
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if !rc.Enabled {
		log.Info().Msg("rabbit disabled, certificate emails will not be queued")
		return rc, nil
	}
	if rc.Url == "" {
		return rc, errors.New("rabbit.url is required when rabbit is enabled")
	}
	if rc.Exchange == "" {
		rc.Exchange = "certificates"
	}
	if rc.Queue == "" {
		rc.Queue = "certificate-emails"
	}
	return rc, nil
}

func BuildQRConfig(cfg Source, log *zerolog.Logger) qrcode.Options {
	return qrcode.Options{
		APIURL:        cfg.GetString("qr.api_url"),
		Size:          cfg.GetInt("qr.size"),
		Concurrency:   cfg.GetInt("qr.concurrency"),
		Timeout:       duration(cfg, log, "qr.timeout", 15*time.Second),
		FallbackLocal: cfg.GetBool("qr.fallback_local"),
	}
}

func BuildStorageConfig(cfg Source) (storage.Config, error) {
	sc := storage.Config{
		Driver:        cfg.GetString("storage.driver"),
		Dir:           cfg.GetString("storage.dir"),
		PublicBaseURL: cfg.GetString("storage.public_base_url"),
		Bucket:        cfg.GetString("storage.bucket"),
		Region:        cfg.GetString("storage.region"),
		Endpoint:      cfg.GetString("storage.endpoint"),
		Prefix:        cfg.GetString("storage.prefix"),
	}
	if sc.Driver == "s3" && sc.Bucket == "" {
		return sc, errors.New("storage.bucket is required for the s3 driver")
	}
	return sc, nil
}

func BuildMailConfig(cfg Source) mailer.Config {
	return mailer.Config{
		Enabled:  cfg.GetBool("mail.enabled"),
		Host:     cfg.GetString("mail.host"),
		Port:     cfg.GetInt("mail.port"),
		Username: cfg.GetString("mail.username"),
		Password: cfg.GetString("mail.password"),
		From:     cfg.GetString("mail.from"),
	}
}

func BuildAuthConfig(cfg Source) auth.Config {
	return auth.Config{
		JWKSURL:     cfg.GetString("auth.jwks_url"),
		Issuer:      cfg.GetString("auth.issuer"),
		Audience:    cfg.GetString("auth.audience"),
		HS256Secret: cfg.GetString("auth.hs256_secret"),
	}
}

func duration(cfg Source, log *zerolog.Logger, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(cfg.GetString(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		log.Warn().Str("key", key).Str("value", raw).Msgf("invalid duration, using %s", def)
		return def
	}
	return d
}

func list(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
