// Package cache keeps assembled exam definitions in Redis so the hot paths
// (answer saves, proctoring events, submits) skip the join on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exampro-backend/internal/config"
	"github.com/stemsi/exampro-backend/internal/logger"
	"github.com/stemsi/exampro-backend/internal/model"
)

// Loader assembles an exam definition from the primary store.
type Loader interface {
	Definition(ctx context.Context, examID int64) (*model.ExamDefinition, error)
}

// ExamCache is a read-through cache of exam definitions.
type ExamCache struct {
	rdb    *redis.Client
	loader Loader
	ttl    time.Duration
	log    zerolog.Logger
}

// NewExamCache creates a new ExamCache.
func NewExamCache(rdb *redis.Client, loader Loader, ttl time.Duration, log zerolog.Logger) *ExamCache {
	return &ExamCache{
		rdb:    rdb,
		loader: loader,
		ttl:    ttl,
		log:    logger.Component(log, "exam_cache"),
	}
}

// Definition returns the cached definition, loading and caching it on a miss.
// Redis failures degrade to a direct load.
func (c *ExamCache) Definition(ctx context.Context, examID int64) (*model.ExamDefinition, error) {
	key := config.CacheKey.ExamDefinitionKey(examID)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var def model.ExamDefinition
		if err := json.Unmarshal(data, &def); err == nil {
			return &def, nil
		}
		c.log.Warn().Int64("exam_id", examID).Msg("Discarding undecodable cached definition")
	case !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Int64("exam_id", examID).Msg("Exam cache read failed, loading from store")
	}

	def, err := c.loader.Definition(ctx, examID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, def)
	return def, nil
}

func (c *ExamCache) store(ctx context.Context, def *model.ExamDefinition) {
	data, err := json.Marshal(def)
	if err != nil {
		c.log.Error().Err(err).Int64("exam_id", def.Exam.ID).Msg("Failed to encode exam definition")
		return
	}
	if err := c.rdb.Set(ctx, config.CacheKey.ExamDefinitionKey(def.Exam.ID), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Int64("exam_id", def.Exam.ID).Msg("Failed to cache exam definition")
	}
}

// Invalidate drops the cached definition of an exam.
func (c *ExamCache) Invalidate(ctx context.Context, examID int64) error {
	if err := c.rdb.Del(ctx, config.CacheKey.ExamDefinitionKey(examID)).Err(); err != nil {
		return fmt.Errorf("invalidate exam %d: %w", examID, err)
	}
	return nil
}
