package shared_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"benzback/shared"
	"benzback/shared/cache/mocks"
	"benzback/shared/dto"
)

func TestRoundCents(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{name: "already rounded", value: 324, want: 324},
		{name: "half rounds up", value: 0.125, want: 0.13},
		{name: "tax on a fractional base", value: 137.2 * 0.08, want: 10.98},
		{name: "negative half rounds away from zero", value: -0.125, want: -0.13},
		{name: "sub cent noise", value: 461.20000000000005, want: 461.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, shared.RoundCents(tt.value), 1e-9)
		})
	}
}

func TestBuildCacheKey(t *testing.T) {
	assert.Equal(t, "booking:get", shared.BuildCacheKey("booking:get"))
	assert.Equal(t, "booking:get:b-1", shared.BuildCacheKey("booking:get", "b-1"))
	assert.Equal(t, "limiter:10.0.0.1:curl", shared.BuildCacheKey("limiter", "10.0.0.1", "curl"))
}

func TestBuildCacheKeyWithQuery(t *testing.T) {
	params := dto.QueryParams{Page: 1, Limit: 10, SortBy: "created_at", SortDir: dto.SortDirDesc}
	filter := dto.FilterGroup{Filters: []any{map[string]string{"user_id": "u-1"}}}

	first := shared.BuildCacheKeyWithQuery("booking:gets", params, filter)

	assert.Equal(t, first, shared.BuildCacheKeyWithQuery("booking:gets", params, filter))
	assert.Contains(t, first, "booking:gets:")

	params.Page = 2
	assert.NotEqual(t, first, shared.BuildCacheKeyWithQuery("booking:gets", params, filter))
}

func TestInvalidateCaches(t *testing.T) {
	tests := []struct {
		name     string
		clearErr error
	}{
		{name: "clears every key under the prefix"},
		{name: "failure is swallowed", clearErr: errors.New("redis down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			redisCache := mocks.NewMockRedisCache(ctrl)

			redisCache.EXPECT().Clear(gomock.Any(), "booking:gets*").Return(tt.clearErr)

			assert.NotPanics(t, func() {
				shared.InvalidateCaches(context.Background(), redisCache, "booking:gets")
			})
		})
	}
}
