package postgres

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sci-com/scicom-api/internal/query"
)

var ErrUnknownField = errors.New("unknown filter field")

type column struct {
	expr  string
	array bool
}

var projectColumns = map[string]column{
	query.FieldTitle:       {expr: "p.title"},
	query.FieldDescription: {expr: "p.description"},
	query.FieldStatus:      {expr: "p.status"},
	query.FieldNature:      {expr: "p.nature"},
	query.FieldState:       {expr: "p.state"},
	query.FieldTags:        {expr: "p.tags", array: true},
	query.FieldSalary:      {expr: "p.salary"},
	query.FieldFrom:        {expr: "p.from_date"},
}

var userColumns = map[string]column{
	query.FieldFirstName:    {expr: "u.first_name"},
	query.FieldLastName:     {expr: "u.last_name"},
	query.FieldUsername:     {expr: "u.username"},
	query.FieldTitle:        {expr: "u.title"},
	query.FieldPosition:     {expr: "u.position"},
	query.FieldCity:         {expr: "u.city"},
	query.FieldState:        {expr: "u.state"},
	query.FieldMajor:        {expr: "u.major", array: true},
	query.FieldIsPolitician: {expr: "u.is_politician"},
}

var applicationColumns = map[string]column{
	query.FieldStatus: {expr: "a.status"},
}

// sqlArgs collects positional parameters for one statement.
type sqlArgs struct {
	values []any
}

func (a *sqlArgs) bind(v any) string {
	a.values = append(a.values, v)
	return "$" + strconv.Itoa(len(a.values))
}

// where renders pred as a conjunction. Extra clauses are appended verbatim and
// must only reference parameters bound through args.
func where(pred query.Predicate, columns map[string]column, args *sqlArgs, extra ...string) (string, error) {
	clauses := make([]string, 0, pred.Len()+len(extra))
	for _, cond := range pred.Conditions() {
		clause, err := renderCondition(cond, columns, args)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}
	clauses = append(clauses, extra...)
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), nil
}

func renderCondition(cond query.Condition, columns map[string]column, args *sqlArgs) (string, error) {
	if cond.Op == query.OpAnyOf {
		if len(cond.Any) == 0 {
			return "FALSE", nil
		}
		parts := make([]string, 0, len(cond.Any))
		for _, sub := range cond.Any {
			part, err := renderCondition(sub, columns, args)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	}

	col, ok := columns[cond.Field]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, cond.Field)
	}

	switch cond.Op {
	case query.OpPattern:
		if col.array {
			return fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(%s) AS elem WHERE elem ~* %s)", col.expr, args.bind(cond.Value)), nil
		}
		return fmt.Sprintf("COALESCE(%s::text, '') ~* %s", col.expr, args.bind(cond.Value)), nil
	case query.OpExact:
		return fmt.Sprintf("%s = %s", col.expr, args.bind(cond.Value)), nil
	case query.OpGT:
		return fmt.Sprintf("%s > %s", col.expr, args.bind(cond.Value)), nil
	case query.OpGTE:
		return fmt.Sprintf("%s >= %s", col.expr, args.bind(cond.Value)), nil
	case query.OpEqZero:
		return fmt.Sprintf("%s = 0", col.expr), nil
	default:
		return "", fmt.Errorf("unsupported filter op %q", cond.Op)
	}
}
