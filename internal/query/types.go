package query

// Op identifies a predicate operator.
type Op string

const (
	// OpEq matches rows whose field equals the value.
	OpEq Op = "eq"
	// OpNe matches rows whose field does not equal the value.
	OpNe Op = "ne"
	// OpLt matches rows whose field is less than the value.
	OpLt Op = "lt"
	// OpLte matches rows whose field is less than or equal to the value.
	OpLte Op = "lte"
	// OpGt matches rows whose field is greater than the value.
	OpGt Op = "gt"
	// OpGte matches rows whose field is greater than or equal to the value.
	OpGte Op = "gte"
	// OpLike matches rows whose field matches a SQL LIKE pattern.
	OpLike Op = "like"
	// OpIn matches rows whose field is a member of the value list.
	OpIn Op = "in"
)

// Predicate is one (field, operator, value) filter triple.
//
// Field names a top-level JSON field of the stored payload. For OpIn the
// Value must be a non-empty []any (or typed slice); for every other operator
// it is a single scalar.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Query describes a filtered, ordered, paginated read of one collection.
//
// Predicates are combined with AND. An empty Predicates slice matches every
// row. OrderBy names a top-level payload field or one of the metadata
// columns (id, created_at, updated_at); empty means creation time
// descending.
type Query struct {
	Predicates []Predicate

	// OrderBy is the field to sort by; "" sorts by creation time descending.
	OrderBy string
	// Desc reverses the sort direction. Requires OrderBy.
	Desc bool

	// Limit caps the number of rows returned; 0 means no limit.
	Limit int
	// Offset skips rows before returning results.
	Offset int
}

// Where is a convenience constructor for a single-predicate query.
func Where(field string, op Op, value any) Query {
	return Query{Predicates: []Predicate{{Field: field, Op: op, Value: value}}}
}

// And returns a copy of q with an additional predicate.
func (q Query) And(field string, op Op, value any) Query {
	preds := make([]Predicate, len(q.Predicates), len(q.Predicates)+1)
	copy(preds, q.Predicates)
	q.Predicates = append(preds, Predicate{Field: field, Op: op, Value: value})
	return q
}
