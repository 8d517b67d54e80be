package shared

import (
	"benzback/shared/cache"
	"benzback/shared/constant"
	"benzback/shared/dto"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
)

const cacheKeySeparator = ":"

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

// RoundCents rounds a monetary amount half away from zero to two decimals.
func RoundCents(value float64) float64 {
	return math.Round(value*constant.CentsPerUnit) / constant.CentsPerUnit
}

func BuildCacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}

	return prefix + cacheKeySeparator + strings.Join(parts, cacheKeySeparator)
}

// BuildCacheKeyWithQuery derives a stable key from the paging parameters and the filter tree.
func BuildCacheKeyWithQuery(prefix string, params dto.QueryParams, filter dto.FilterGroup) string {
	raw, err := json.Marshal(struct {
		Params dto.QueryParams `json:"params"`
		Filter dto.FilterGroup `json:"filter"`
	}{params, filter})
	if err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to marshal cache query")

		return prefix
	}

	sum := sha256.Sum256(raw)

	return BuildCacheKey(prefix, hex.EncodeToString(sum[:8]))
}

// InvalidateCaches drops every key under prefix. Failures are logged only.
func InvalidateCaches(ctx context.Context, redisCache cache.RedisCache, prefix string) {
	if err := redisCache.Clear(ctx, prefix+constant.Asterix); err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to invalidate caches")
	}
}
