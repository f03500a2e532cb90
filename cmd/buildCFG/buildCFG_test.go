package buildCFG

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource map[string]any

func (m mapSource) GetString(key string) string {
	s, _ := m[key].(string)
	return s
}

func (m mapSource) GetInt(key string) int {
	i, _ := m[key].(int)
	return i
}

func (m mapSource) GetBool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

func TestBuildServerConfigDefaults(t *testing.T) {
	log := zerolog.Nop()
	sc := BuildServerConfig(mapSource{}, &log)

	assert.Equal(t, "8080", sc.Port)
	assert.Equal(t, "release", sc.GinMode)
	assert.Equal(t, "http://localhost:8080", sc.BaseURL)
	assert.Equal(t, int64(10<<20), sc.MaxUploadBytes)
	assert.Equal(t, 10*time.Second, sc.ShutdownTimeout)
	assert.Empty(t, sc.CORSOrigins)
}

func TestBuildServerConfig(t *testing.T) {
	log := zerolog.Nop()
	sc := BuildServerConfig(mapSource{
		"server.port":               "9000",
		"server.base_url":           "https://certs.example.com/",
		"server.max_upload_mb":      2,
		"server.shutdown_timeout":   "3s",
		"server.cors_origins":       "https://a.example.com, https://b.example.com",
		"server.verify_rate_limit":  60,
		"server.verify_rate_window": "bogus",
	}, &log)

	assert.Equal(t, "https://certs.example.com", sc.BaseURL)
	assert.Equal(t, int64(2<<20), sc.MaxUploadBytes)
	assert.Equal(t, 3*time.Second, sc.ShutdownTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, sc.CORSOrigins)
	assert.Equal(t, int64(60), sc.VerifyRateLimit)
	assert.Equal(t, time.Minute, sc.VerifyWindow)
}

func TestBuildDBConfig(t *testing.T) {
	log := zerolog.Nop()
	_, _, _, err := BuildDBConfig(mapSource{}, &log)
	assert.Error(t, err)

	master, slaves, opts, err := BuildDBConfig(mapSource{
		"postgres.master_dsn":     "postgres://master",
		"postgres.slave_dsns":     "postgres://r1,postgres://r2",
		"postgres.max_open_conns": 20,
	}, &log)
	require.NoError(t, err)
	assert.Equal(t, "postgres://master", master)
	assert.Equal(t, []string{"postgres://r1", "postgres://r2"}, slaves)
	assert.Equal(t, 20, opts.MaxOpenConns)
	assert.Equal(t, 5, opts.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, opts.ConnMaxLifetime)
}

func TestBuildRabbitConfig(t *testing.T) {
	log := zerolog.Nop()
	rc, err := BuildRabbitConfig(mapSource{}, &log)
	require.NoError(t, err)
	assert.False(t, rc.Enabled)

	_, err = BuildRabbitConfig(mapSource{"rabbit.enabled": true}, &log)
	assert.Error(t, err)

	rc, err = BuildRabbitConfig(mapSource{"rabbit.enabled": true, "rabbit.url": "amqp://localhost"}, &log)
	require.NoError(t, err)
	assert.Equal(t, "certificates", rc.Exchange)
	assert.Equal(t, "certificate-emails", rc.Queue)
}

func TestBuildStorageConfig(t *testing.T) {
	_, err := BuildStorageConfig(mapSource{"storage.driver": "s3"})
	assert.Error(t, err)

	sc, err := BuildStorageConfig(mapSource{"storage.driver": "s3", "storage.bucket": "qr", "storage.region": "eu-west-1"})
	require.NoError(t, err)
	assert.Equal(t, "qr", sc.Bucket)
}

func TestBuildAuthAndRedis(t *testing.T) {
	log := zerolog.Nop()
	assert.False(t, BuildAuthConfig(mapSource{}).Enabled())
	assert.True(t, BuildAuthConfig(mapSource{"auth.hs256_secret": "s"}).Enabled())

	rc := BuildRedisConfig(mapSource{"redis.addr": "localhost:6379", "redis.cache_ttl": "1m"}, &log)
	assert.True(t, rc.Enabled())
	assert.Equal(t, time.Minute, rc.CacheTTL)
}
