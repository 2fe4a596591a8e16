package query

import (
	"regexp"
	"strings"
)

// Logical field names understood by the storage layer. Repositories map them
// onto columns and reject anything else.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldStatus       = "status"
	FieldNature       = "nature"
	FieldState        = "state"
	FieldTags         = "tags"
	FieldSalary       = "salary"
	FieldFrom         = "from"
	FieldFirstName    = "firstName"
	FieldLastName     = "lastName"
	FieldUsername     = "username"
	FieldIsPolitician = "isPolitician"
	FieldPosition     = "position"
	FieldCity         = "city"
	FieldMajor        = "major"
)

type Op string

const (
	// OpPattern is a case-insensitive match against an escaped pattern.
	OpPattern Op = "pattern"
	OpExact   Op = "exact"
	OpGT      Op = "gt"
	OpGTE     Op = "gte"
	OpEqZero  Op = "eqzero"
	// OpAnyOf holds an OR group in Condition.Any.
	OpAnyOf Op = "anyof"
)

type Condition struct {
	Field string
	Op    Op
	Value any
	Any   []Condition
}

// Pattern builds a literal, case-insensitive condition for term.
func Pattern(field, term string) Condition {
	return Condition{Field: field, Op: OpPattern, Value: regexp.QuoteMeta(strings.TrimSpace(term))}
}

func Exact(field string, value any) Condition {
	return Condition{Field: field, Op: OpExact, Value: value}
}

func GreaterThan(field string, value any) Condition {
	return Condition{Field: field, Op: OpGT, Value: value}
}

func AtLeast(field string, value any) Condition {
	return Condition{Field: field, Op: OpGTE, Value: value}
}

func IsZero(field string) Condition {
	return Condition{Field: field, Op: OpEqZero}
}

func AnyOf(conds ...Condition) Condition {
	group := make([]Condition, len(conds))
	copy(group, conds)
	return Condition{Op: OpAnyOf, Any: group}
}

// Predicate is an AND of conditions. The zero value matches everything and
// every method returns a new value.
type Predicate struct {
	conds []Condition
}

func NewPredicate(conds ...Condition) Predicate {
	return Predicate{}.With(conds...)
}

func (p Predicate) With(conds ...Condition) Predicate {
	out := make([]Condition, 0, len(p.conds)+len(conds))
	out = append(out, p.conds...)
	for _, c := range conds {
		out = append(out, c.clone())
	}
	return Predicate{conds: out}
}

func (p Predicate) Conditions() []Condition {
	out := make([]Condition, len(p.conds))
	for i, c := range p.conds {
		out[i] = c.clone()
	}
	return out
}

func (p Predicate) Empty() bool {
	return len(p.conds) == 0
}

func (p Predicate) Len() int {
	return len(p.conds)
}

// Find returns the first top-level condition on field.
func (p Predicate) Find(field string) (Condition, bool) {
	for _, c := range p.conds {
		if c.Field == field {
			return c.clone(), true
		}
	}
	return Condition{}, false
}

func (c Condition) clone() Condition {
	if c.Any == nil {
		return c
	}
	group := make([]Condition, len(c.Any))
	for i, sub := range c.Any {
		group[i] = sub.clone()
	}
	c.Any = group
	return c
}
