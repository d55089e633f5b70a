package shared

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"strings"
	"thakajabe/shared/cache"
	"thakajabe/shared/constant"
	"thakajabe/shared/dto"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	cacheKeySeparator = ":"

	// generation keys live outside the prefixes they track so Clear never removes them
	cacheGenerationPrefix  = "generation"
	initialCacheGeneration = "0"
)

func CalculateTotalPage(total, limit int) (res int) {
	if total == 0 || limit <= 0 {
		res = 1
	} else {
		res = int(math.Ceil(float64(total) / float64(limit)))
	}

	return res
}

func FilterByID(id, fieldID, table string) dto.FilterGroup {
	return dto.FilterGroup{
		Filters: []any{
			dto.Filter{
				Field:    fieldID,
				Value:    id,
				Operator: dto.FilterOperatorEq,
				Table:    table,
			},
		},
	}
}

// BuildCacheKey joins a prefix and its parts into a redis key.
func BuildCacheKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), cacheKeySeparator)
}

// BuildCacheKeyWithQuery derives a stable key from the query parameters and filter of a listing.
func BuildCacheKeyWithQuery(prefix string, params dto.QueryParams, filter dto.FilterGroup) string {
	where, args := filter.GetWhereClause()

	raw, err := json.Marshal(struct {
		Params dto.QueryParams `json:"params"`
		Where  string          `json:"where"`
		Args   map[string]any  `json:"args"`
	}{params, where, args})
	if err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to marshal cache key query")

		return BuildCacheKey(prefix, where)
	}

	sum := sha256.Sum256(raw)

	return BuildCacheKey(prefix, hex.EncodeToString(sum[:]))
}

// CacheGeneration returns the current generation of the keys under prefix. Reads take it before
// querying and build their key with it, so a result computed before an invalidation is saved
// under a generation nobody reads any more.
func CacheGeneration(ctx context.Context, redisCache cache.RedisCache, prefix string) string {
	var generation string

	if err := redisCache.Get(ctx, BuildCacheKey(cacheGenerationPrefix, prefix), &generation); err != nil || generation == constant.Empty {
		return initialCacheGeneration
	}

	return generation
}

// BuildGenerationCacheKey prefixes parts with the current generation of prefix.
func BuildGenerationCacheKey(ctx context.Context, redisCache cache.RedisCache, prefix string, parts ...string) string {
	return BuildCacheKey(prefix, append([]string{CacheGeneration(ctx, redisCache, prefix)}, parts...)...)
}

// InvalidateCaches moves prefix to a new generation and removes every key under it, logging instead of failing.
func InvalidateCaches(ctx context.Context, redisCache cache.RedisCache, prefix string) {
	if err := redisCache.Save(ctx, BuildCacheKey(cacheGenerationPrefix, prefix), uuid.NewString(), 0); err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to bump cache generation")
	}

	if err := redisCache.Clear(ctx, prefix+cacheKeySeparator+constant.Asterix); err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to invalidate caches")
	}
}
