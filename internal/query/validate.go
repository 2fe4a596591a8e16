package query

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sci-com/scicom-api/internal/domain"
)

var ErrEmptyQuery = errors.New("no search criteria supplied")

// Params is a sparse set of filter fields. Values are strings when they come
// from a query string and may be numbers or booleans when decoded from JSON.
type Params map[string]any

// FromValues keeps the first non-blank value of every key.
func FromValues(values url.Values) Params {
	params := make(Params, len(values))
	for key, vals := range values {
		for _, v := range vals {
			if strings.TrimSpace(v) != "" {
				params[key] = v
				break
			}
		}
	}
	return params
}

func (p Params) lookup(key string) (any, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

func (p Params) text(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

// Result is the outcome of a validation function. Fields lists the offending
// field names in check order.
type Result struct {
	OK     bool
	Fields []string
}

func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &ValidationError{Fields: append([]string(nil), r.Fields...)}
}

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid query fields: " + strings.Join(e.Fields, ", ")
}

type checker struct {
	invalid []string
}

func (c *checker) check(field string, ok bool) {
	if !ok {
		c.invalid = append(c.invalid, field)
	}
}

// checkEncoding flags string values that are not valid UTF-8. PostgreSQL
// refuses them as text parameters.
func (c *checker) checkEncoding(p Params) {
	var bad []string
	for key, v := range p {
		if s, ok := v.(string); ok && !utf8.ValidString(s) && !slices.Contains(c.invalid, key) {
			bad = append(bad, key)
		}
	}
	sort.Strings(bad)
	c.invalid = append(c.invalid, bad...)
}

func (c *checker) result() Result {
	return Result{OK: len(c.invalid) == 0, Fields: c.invalid}
}

// ValidateProjectList checks the query of the project listing endpoint.
func ValidateProjectList(p Params) Result {
	var c checker
	if v, ok := p.lookup("from"); ok {
		_, err := parseDate(v)
		c.check("from", err == nil)
	}
	if v, ok := p.lookup("page"); ok {
		_, err := parsePage(v)
		c.check("page", err == nil)
	}
	if v, ok := p.lookup("salary"); ok {
		_, err := parseNumber(v)
		c.check("salary", err == nil)
	}
	if s, ok := p.text("status"); ok {
		c.check("status", domain.ProjectStatus(s).Valid())
	}
	for _, key := range []string{"nature", "type"} {
		if s, ok := p.text(key); ok {
			c.check(key, domain.ProjectNature(s).Valid())
		}
	}
	if s, ok := p.text("state"); ok {
		c.check("state", domain.IsGermanState(s))
	}
	c.checkEncoding(p)
	return c.result()
}

// ValidateUserSearch checks the query of the user search endpoint.
func ValidateUserSearch(p Params) Result {
	var c checker
	if v, ok := p.lookup("page"); ok {
		_, err := parsePage(v)
		c.check("page", err == nil)
	}
	if s, ok := p.text("state"); ok {
		c.check("state", domain.IsGermanState(s))
	}
	if v, ok := p.lookup("isPolitician"); ok {
		_, err := parseBool(v)
		c.check("isPolitician", err == nil)
	}
	c.checkEncoding(p)
	return c.result()
}

// ValidateApplicationList checks the query of the application listing endpoint.
func ValidateApplicationList(p Params) Result {
	var c checker
	if s, ok := p.text("status"); ok {
		c.check("status", domain.ApplicationStatus(s).Valid())
	}
	if v, ok := p.lookup("page"); ok {
		_, err := parsePage(v)
		c.check("page", err == nil)
	}
	c.checkEncoding(p)
	return c.result()
}

type SalaryRequirement string

const (
	SalaryRequired    SalaryRequirement = "REQUIRED"
	SalaryNotRequired SalaryRequirement = "NOT_REQUIRED"
)

func (s SalaryRequirement) Valid() bool {
	return s == SalaryRequired || s == SalaryNotRequired
}

// SearchRequest is the payload of the global search endpoint.
type SearchRequest struct {
	SearchTerm *string `json:"searchTerm,omitempty" query:"searchTerm"`
	Salary     *string `json:"salary,omitempty" query:"salary"`
	Type       *string `json:"type,omitempty" query:"type"`
	Date       *string `json:"date,omitempty" query:"date"`
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// Blank reports whether no criterion is set.
func (r SearchRequest) Blank() bool {
	return !present(r.SearchTerm) && !present(r.Salary) && !present(r.Type) && !present(r.Date)
}

// ValidateSearch checks the enum and date fields of a search payload. A blank
// payload passes here; the builder rejects it with ErrEmptyQuery.
func ValidateSearch(r SearchRequest) Result {
	var c checker
	if present(r.Salary) {
		c.check("salary", SalaryRequirement(strings.TrimSpace(*r.Salary)).Valid())
	}
	if present(r.Type) {
		c.check("type", domain.ProjectNature(strings.TrimSpace(*r.Type)).Valid())
	}
	if present(r.Date) {
		_, err := parseDate(*r.Date)
		c.check("date", err == nil)
	}
	if r.SearchTerm != nil {
		c.check("searchTerm", utf8.ValidString(*r.SearchTerm))
	}
	return c.result()
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate accepts the same date layouts as the filter fields.
func ParseDate(s string) (time.Time, error) {
	return parseDate(s)
}

func parseDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, errors.New("zero time")
		}
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}

func parsePage(v any) (int, error) {
	var n int
	switch t := v.(type) {
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, err
		}
		n = parsed
	case int:
		n = t
	case int64:
		n = int(t)
	case float64:
		if t != math.Trunc(t) || t > math.MaxInt32 {
			return 0, fmt.Errorf("page %v is not an integer", t)
		}
		n = int(t)
	default:
		return 0, fmt.Errorf("unsupported page type %T", v)
	}
	if n < 1 {
		return 0, fmt.Errorf("page %d is not positive", n)
	}
	return n, nil
}

func parseNumber(v any) (float64, error) {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("salary %q is not finite", t)
		}
		return f, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	default:
		return 0, fmt.Errorf("unsupported number type %T", v)
	}
}

func parseBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(t))
	default:
		return false, fmt.Errorf("unsupported boolean type %T", v)
	}
}
