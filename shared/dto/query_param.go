package dto

import (
	"benzback/shared/constant"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	SortDirAsc  = "ASC"
	SortDirDesc = "DESC"
)

type QueryParams struct {
	Page    int    `json:"page"     validate:"omitempty"`
	Limit   int    `json:"limit"    validate:"omitempty"`
	SortBy  string `json:"sort_by"  validate:"omitempty"`
	SortDir string `json:"sort_dir" validate:"omitempty,oneof=ASC DESC"`
}

// FromRequest reads page, limit, sort_by and sort_dir from the query string. With
// withDefaults set, a missing page or limit falls back to the defaults. Limit is capped
// at constant.MaxValueLimit either way.
func (q *QueryParams) FromRequest(r *http.Request, withDefaults bool) {
	queryParams := r.URL.Query()

	if page, err := strconv.Atoi(queryParams.Get(constant.RequestParamPage)); err == nil && page > 0 {
		q.Page = page
	}

	if limit, err := strconv.Atoi(queryParams.Get(constant.RequestParamLimit)); err == nil && limit > 0 {
		q.Limit = min(limit, constant.MaxValueLimit)
	}

	if sortBy := queryParams.Get(constant.RequestParamSortBy); sortBy != "" {
		q.SortBy = sortBy
	}

	if sortDir := strings.ToUpper(queryParams.Get(constant.RequestParamSortDir)); sortDir == SortDirAsc || sortDir == SortDirDesc {
		q.SortDir = sortDir
	}

	if withDefaults {
		if q.Page == 0 {
			q.Page = constant.DefaultValuePage
		}

		if q.Limit == 0 {
			q.Limit = constant.DefaultValueLimit
		}
	}
}

// Sanitize resets the ordering to the default when SortBy is not one of the sortable
// columns. The column name ends up in an ORDER BY clause, so it must come from the list.
func (q *QueryParams) Sanitize(sortable ...string) {
	if !slices.Contains(sortable, q.SortBy) {
		q.SortBy = constant.DefaultValueSortBy
		q.SortDir = constant.DefaultValueSortDir
	}

	if q.SortDir == "" {
		q.SortDir = constant.DefaultValueSortDir
	}
}

// Offset is the number of rows skipped before the current page.
func (q QueryParams) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}

	return (q.Page - 1) * q.Limit
}
