package dto

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
)

const (
	FilterOperatorEq      = "eq"
	FilterOperatorIn      = "in"
	FilterOperatorLessEq  = "less_eq"
	FilterOperatorGreater = "greater"
	FilterIsNull          = "is_null"
)

const (
	FilterGroupOperatorAnd = "AND"
	FilterGroupOperatorOr  = "OR"
)

// matchNothing keeps an empty IN list valid SQL.
const matchNothing = "FALSE"

var comparisons = map[string]string{
	FilterOperatorEq:      "=",
	FilterOperatorLessEq:  "<=",
	FilterOperatorGreater: ">",
}

// Filter is one predicate of a WHERE clause, rendered with sqlx named arguments.
type Filter struct {
	ArgName  string
	Field    string
	Value    any
	Operator string `validate:"required,oneof=eq in less_eq greater is_null"`
	Table    string
}

func (f *Filter) column() string {
	if f.Table != "" {
		return f.Table + "." + f.Field
	}

	return f.Field
}

func (f *Filter) argName() string {
	if f.ArgName != "" {
		return f.ArgName
	}

	return f.Field
}

func (f *Filter) GetWhereClause() (string, map[string]any) {
	args := map[string]any{}
	column, argName := f.column(), f.argName()

	if comparison, ok := comparisons[f.Operator]; ok {
		args[argName] = f.Value

		return fmt.Sprintf("%s %s :%s", column, comparison, argName), args
	}

	switch f.Operator {
	case FilterOperatorIn:
		val := reflect.ValueOf(f.Value)
		if val.Kind() != reflect.Array && val.Kind() != reflect.Slice {
			args[argName] = f.Value

			return fmt.Sprintf("%s = :%s", column, argName), args
		}

		if val.Len() == 0 {
			return matchNothing, args
		}

		named := make([]string, val.Len())

		for idx := range val.Len() {
			name := fmt.Sprintf("%s_%d", argName, idx)
			args[name] = val.Index(idx).Interface()
			named[idx] = ":" + name
		}

		return fmt.Sprintf("%s IN (%s)", column, strings.Join(named, ", ")), args
	case FilterIsNull:
		return column + " IS NULL", args
	default:
		return "", args
	}
}

// FilterGroup joins Filters and nested FilterGroups with one operator.
type FilterGroup struct {
	Filters  []any
	Operator string
}

func (f *FilterGroup) GetWhereClause() (string, map[string]any) {
	args := map[string]any{}
	clauses := make([]string, 0, len(f.Filters))

	for _, filter := range f.Filters {
		var (
			where string
			arg   map[string]any
		)

		switch fill := filter.(type) {
		case Filter:
			where, arg = fill.GetWhereClause()
		case FilterGroup:
			where, arg = fill.GetWhereClause()
		default:
			continue
		}

		if where == "" {
			continue
		}

		clauses = append(clauses, where)
		maps.Copy(args, arg)
	}

	if len(clauses) == 0 {
		return "", args
	}

	operator := f.Operator
	if operator == "" {
		operator = FilterGroupOperatorAnd
	}

	return fmt.Sprintf("(%s)", strings.Join(clauses, " "+operator+" ")), args
}
