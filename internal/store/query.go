package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Op identifies a query operator.
type Op string

const (
	OpEqual            Op = "equal"
	OpNotEqual         Op = "notEqual"
	OpGreaterThan      Op = "greaterThan"
	OpGreaterThanEqual Op = "greaterThanEqual"
	OpLessThan         Op = "lessThan"
	OpLessThanEqual    Op = "lessThanEqual"
	OpOr               Op = "or"
	OpOrderAsc         Op = "orderAsc"
	OpOrderDesc        Op = "orderDesc"
	OpLimit            Op = "limit"
	OpOffset           Op = "offset"
)

// Query is a single query term over a collection: either a comparison on a
// column, a logical OR of other comparisons, or a result modifier
// (order/limit/offset). Field names are column names, supplied by code
// rather than by callers over the wire.
type Query struct {
	Op     Op
	Field  string
	Value  interface{}
	Nested []Query // populated for OpOr only
}

// Equal matches documents whose field equals value.
func Equal(field string, value interface{}) Query {
	return Query{Op: OpEqual, Field: field, Value: value}
}

// NotEqual matches documents whose field differs from value.
func NotEqual(field string, value interface{}) Query {
	return Query{Op: OpNotEqual, Field: field, Value: value}
}

// GreaterThan matches documents whose field is strictly greater than value.
func GreaterThan(field string, value interface{}) Query {
	return Query{Op: OpGreaterThan, Field: field, Value: value}
}

// GreaterThanEqual matches documents whose field is at least value.
func GreaterThanEqual(field string, value interface{}) Query {
	return Query{Op: OpGreaterThanEqual, Field: field, Value: value}
}

// LessThan matches documents whose field is strictly less than value.
func LessThan(field string, value interface{}) Query {
	return Query{Op: OpLessThan, Field: field, Value: value}
}

// LessThanEqual matches documents whose field is at most value.
func LessThanEqual(field string, value interface{}) Query {
	return Query{Op: OpLessThanEqual, Field: field, Value: value}
}

// Or matches documents satisfying any of the nested comparisons.
func Or(queries ...Query) Query {
	return Query{Op: OpOr, Nested: queries}
}

// OrderAsc sorts results by field, ascending.
func OrderAsc(field string) Query {
	return Query{Op: OpOrderAsc, Field: field}
}

// OrderDesc sorts results by field, descending.
func OrderDesc(field string) Query {
	return Query{Op: OpOrderDesc, Field: field}
}

// Limit caps the number of returned documents.
func Limit(n int) Query {
	return Query{Op: OpLimit, Value: n}
}

// Offset skips the first n matching documents.
func Offset(n int) Query {
	return Query{Op: OpOffset, Value: n}
}

// IsFilter reports whether the query term narrows the result set, as opposed
// to ordering or paginating it. Filters participate in total counts.
func (q Query) IsFilter() bool {
	switch q.Op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanEqual, OpLessThan, OpLessThanEqual, OpOr:
		return true
	}
	return false
}

// condition renders a filter term as a SQL fragment with bind arguments.
func (q Query) condition() (string, []interface{}) {
	switch q.Op {
	case OpEqual:
		return fmt.Sprintf("%s = ?", q.Field), []interface{}{q.Value}
	case OpNotEqual:
		return fmt.Sprintf("%s <> ?", q.Field), []interface{}{q.Value}
	case OpGreaterThan:
		return fmt.Sprintf("%s > ?", q.Field), []interface{}{q.Value}
	case OpGreaterThanEqual:
		return fmt.Sprintf("%s >= ?", q.Field), []interface{}{q.Value}
	case OpLessThan:
		return fmt.Sprintf("%s < ?", q.Field), []interface{}{q.Value}
	case OpLessThanEqual:
		return fmt.Sprintf("%s <= ?", q.Field), []interface{}{q.Value}
	case OpOr:
		var parts []string
		var args []interface{}
		for _, n := range q.Nested {
			cond, nestedArgs := n.condition()
			if cond == "" {
				continue
			}
			parts = append(parts, cond)
			args = append(args, nestedArgs...)
		}
		if len(parts) == 0 {
			return "", nil
		}
		return "(" + strings.Join(parts, " OR ") + ")", args
	}
	return "", nil
}

// Apply translates the query terms onto a gorm statement.
func Apply(tx *gorm.DB, queries []Query) *gorm.DB {
	for _, q := range queries {
		switch q.Op {
		case OpOrderAsc:
			tx = tx.Order(q.Field + " asc")
		case OpOrderDesc:
			tx = tx.Order(q.Field + " desc")
		case OpLimit:
			if n, ok := q.Value.(int); ok {
				tx = tx.Limit(n)
			}
		case OpOffset:
			if n, ok := q.Value.(int); ok {
				tx = tx.Offset(n)
			}
		default:
			cond, args := q.condition()
			if cond != "" {
				tx = tx.Where(cond, args...)
			}
		}
	}
	return tx
}

// ApplyFilters translates only the filter terms, for count queries.
func ApplyFilters(tx *gorm.DB, queries []Query) *gorm.DB {
	for _, q := range queries {
		if !q.IsFilter() {
			continue
		}
		cond, args := q.condition()
		if cond != "" {
			tx = tx.Where(cond, args...)
		}
	}
	return tx
}
