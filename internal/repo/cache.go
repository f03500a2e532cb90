package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"certify/internal/model"
)

type certificateSource interface {
	GetCertificate(ctx context.Context, participantID string) (*model.Certificate, error)
}

// CertificateCache is a read-through Redis cache in front of certificate lookups.
// A nil Redis client turns it into a plain pass-through.
type CertificateCache struct {
	base  certificateSource
	redis *redis.Client
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewCertificateCache(base certificateSource, client *redis.Client, ttl time.Duration, log *zerolog.Logger) *CertificateCache {
	if base == nil {
		panic("repo.NewCertificateCache: base is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CertificateCache{base: base, redis: client, ttl: ttl, log: log}
}

func (c *CertificateCache) GetCertificate(ctx context.Context, participantID string) (*model.Certificate, error) {
	if cert, ok := c.load(ctx, participantID); ok {
		return cert, nil
	}

	cert, err := c.base.GetCertificate(ctx, participantID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cert)
	return cert, nil
}

// EvictEvent drops every cached certificate that belongs to eventID.
func (c *CertificateCache) EvictEvent(ctx context.Context, eventID string) {
	if c.redis == nil {
		return
	}
	setKey := eventMembersKey(eventID)
	ids, err := c.redis.SMembers(ctx, setKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Str("event_id", eventID).Msg("failed to list cached certificates")
		return
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, certificateKey(id))
	}
	keys = append(keys, setKey)
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Str("event_id", eventID).Msg("failed to evict cached certificates")
	}
}

func (c *CertificateCache) load(ctx context.Context, participantID string) (*model.Certificate, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, certificateKey(participantID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// fall back to the database without failing the request
			_ = c.redis.Del(ctx, certificateKey(participantID)).Err()
		}
		return nil, false
	}
	var cert model.Certificate
	if err := json.Unmarshal(data, &cert); err != nil {
		_ = c.redis.Del(ctx, certificateKey(participantID)).Err()
		return nil, false
	}
	return &cert, true
}

func (c *CertificateCache) store(ctx context.Context, cert *model.Certificate) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(cert)
	if err != nil {
		return
	}
	setKey := eventMembersKey(cert.Event.ID)
	pipe := c.redis.TxPipeline()
	pipe.Set(ctx, certificateKey(cert.Participant.ID), data, c.ttl)
	pipe.SAdd(ctx, setKey, cert.Participant.ID)
	pipe.Expire(ctx, setKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn().Err(err).Str("participant_id", cert.Participant.ID).Msg("failed to cache certificate")
	}
}

func certificateKey(participantID string) string {
	return "certificate:" + participantID
}

func eventMembersKey(eventID string) string {
	return "certificate:event:" + eventID
}
