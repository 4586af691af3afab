package query

import (
	"fmt"
	"reflect"
)

// Validate checks that every predicate and option in q is well formed.
//
// Rules:
//  1. Field names (predicates and OrderBy) must be identifiers - they are
//     spliced into JSON path expressions by the SQL compiler.
//  2. Operators must be one of the supported Op constants.
//  3. OpIn requires a non-empty slice value; scalar operators reject slices.
//  4. Desc requires OrderBy: the default order is already creation time
//     descending, so a bare Desc has no field to reverse.
//  5. Limit and Offset must be non-negative.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	for i, p := range q.Predicates {
		if err := validatePredicate(p); err != nil {
			return fmt.Errorf("predicate %d: %w", i, err)
		}
	}

	if q.OrderBy != "" && !validFieldName(q.OrderBy) {
		return fmt.Errorf("order by: invalid field name %q", q.OrderBy)
	}
	if q.OrderBy == "" && q.Desc {
		return fmt.Errorf("desc requires an order by field")
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", q.Limit)
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset must be non-negative, got %d", q.Offset)
	}

	return nil
}

func validatePredicate(p Predicate) error {
	if !validFieldName(p.Field) {
		return fmt.Errorf("invalid field name %q", p.Field)
	}

	switch p.Op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte, OpLike:
		if isSlice(p.Value) {
			return fmt.Errorf("field %q: operator %q takes a scalar value", p.Field, p.Op)
		}
	case OpIn:
		if !isSlice(p.Value) {
			return fmt.Errorf("field %q: operator in requires a value list", p.Field)
		}
		if reflect.ValueOf(p.Value).Len() == 0 {
			return fmt.Errorf("field %q: operator in requires a non-empty value list", p.Field)
		}
	default:
		return fmt.Errorf("field %q: unsupported operator %q", p.Field, p.Op)
	}

	return nil
}

// validFieldName reports whether name is safe to splice into a JSON path.
// Identifier syntax only: letter or underscore, then letters, digits,
// underscores.
func validFieldName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isSlice(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}
