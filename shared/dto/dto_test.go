package dto_test

import (
	"benzback/shared/constant"
	"benzback/shared/dto"
	"benzback/shared/model"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetadata_FromModel(t *testing.T) {
	metadata := &dto.Metadata{}
	metadata.FromModel(model.Metadata{
		CreatedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ModifiedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		CreatedBy:  "u-1",
		ModifiedBy: "system",
	})

	assert.NotEmpty(t, metadata.CreatedAt)
	assert.NotEqual(t, metadata.CreatedAt, metadata.ModifiedAt)
	assert.Equal(t, "u-1", metadata.CreatedBy)
	assert.Equal(t, "system", metadata.ModifiedBy)

	unchanged := &dto.Metadata{}
	unchanged.FromModel(model.NewMetadata("u-1", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))

	assert.Equal(t, unchanged.CreatedAt, unchanged.ModifiedAt)
	assert.Empty(t, unchanged.ModifiedBy)
}

func TestQueryParams_FromRequest(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		withDefaults bool
		want         dto.QueryParams
	}{
		{
			name:  "all parameters",
			query: "page=2&limit=20&sort_by=pickup_date&sort_dir=asc",
			want:  dto.QueryParams{Page: 2, Limit: 20, SortBy: "pickup_date", SortDir: dto.SortDirAsc},
		},
		{
			name:         "defaults applied",
			withDefaults: true,
			want:         dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit},
		},
		{
			name: "nothing without defaults",
			want: dto.QueryParams{},
		},
		{
			name:         "invalid numbers fall back",
			query:        "page=abc&limit=-4",
			withDefaults: true,
			want:         dto.QueryParams{Page: constant.DefaultValuePage, Limit: constant.DefaultValueLimit},
		},
		{
			name:  "limit capped",
			query: "limit=5000",
			want:  dto.QueryParams{Limit: constant.MaxValueLimit},
		},
		{
			name:  "unknown direction ignored",
			query: "sort_dir=sideways",
			want:  dto.QueryParams{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", "/bookings/?"+tt.query, nil)

			params := dto.QueryParams{}
			params.FromRequest(request, tt.withDefaults)

			assert.Equal(t, tt.want, params)
		})
	}
}

func TestQueryParams_Sanitize(t *testing.T) {
	tests := []struct {
		name   string
		params dto.QueryParams
		want   dto.QueryParams
	}{
		{
			name:   "sortable column kept",
			params: dto.QueryParams{SortBy: "return_date", SortDir: dto.SortDirAsc},
			want:   dto.QueryParams{SortBy: "return_date", SortDir: dto.SortDirAsc},
		},
		{
			name:   "direction defaulted",
			params: dto.QueryParams{SortBy: "return_date"},
			want:   dto.QueryParams{SortBy: "return_date", SortDir: constant.DefaultValueSortDir},
		},
		{
			name:   "unknown column replaced",
			params: dto.QueryParams{SortBy: "1; DROP TABLE bookings", SortDir: dto.SortDirAsc},
			want:   dto.QueryParams{SortBy: constant.DefaultValueSortBy, SortDir: constant.DefaultValueSortDir},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.params.Sanitize("created_at", "return_date")

			assert.Equal(t, tt.want, tt.params)
		})
	}
}

func TestQueryParams_Offset(t *testing.T) {
	assert.Zero(t, dto.QueryParams{}.Offset())
	assert.Zero(t, dto.QueryParams{Page: 1, Limit: 10}.Offset())
	assert.Zero(t, dto.QueryParams{Page: 3}.Offset())
	assert.Equal(t, 20, dto.QueryParams{Page: 3, Limit: 10}.Offset())
}

func TestFilterGroup_GetWhereClause(t *testing.T) {
	group := dto.FilterGroup{
		Operator: dto.FilterGroupOperatorAnd,
		Filters: []any{
			dto.Filter{Field: "user_id", Operator: dto.FilterOperatorEq, Value: "u-1", Table: "bookings"},
			dto.Filter{Field: "status", ArgName: "statuses", Operator: dto.FilterOperatorIn, Value: []string{"active", "overdue"}},
			dto.FilterGroup{
				Operator: dto.FilterGroupOperatorOr,
				Filters: []any{
					dto.Filter{Field: "return_date", Operator: dto.FilterOperatorLessEq, Value: "2026-03-01"},
					dto.Filter{Field: "requested_at", Operator: dto.FilterIsNull},
				},
			},
		},
	}

	where, args := group.GetWhereClause()

	assert.Equal(t, "(bookings.user_id = :user_id AND status IN (:statuses_0, :statuses_1) AND (return_date <= :return_date OR requested_at IS NULL))", where)
	assert.Equal(t, map[string]any{
		"user_id":     "u-1",
		"statuses_0":  "active",
		"statuses_1":  "overdue",
		"return_date": "2026-03-01",
	}, args)
}

func TestFilter_EmptyInMatchesNothing(t *testing.T) {
	filter := dto.Filter{Field: "status", Operator: dto.FilterOperatorIn, Value: []string{}}

	where, args := filter.GetWhereClause()

	assert.Equal(t, "FALSE", where)
	assert.Empty(t, args)
}

func TestFilterGroup_SkipsUnknownEntries(t *testing.T) {
	group := dto.FilterGroup{Filters: []any{
		map[string]string{"user_id": "u-1"},
		dto.Filter{Field: "vehicle_id", Operator: "between", Value: "v-1"},
		dto.Filter{Field: "vehicle_id", Operator: dto.FilterOperatorEq, Value: "v-1"},
	}}

	where, args := group.GetWhereClause()

	assert.Equal(t, "(vehicle_id = :vehicle_id)", where)
	assert.Equal(t, map[string]any{"vehicle_id": "v-1"}, args)
}
