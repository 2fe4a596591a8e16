package query

import (
	"strings"

	"github.com/sci-com/scicom-api/internal/domain"
)

const PageSize = 10

type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// TotalPages rounds total up to whole pages.
func (p Pagination) TotalPages(total int64) int {
	if total <= 0 || p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

// Page reads the 1-based page of p. A missing page is the first one.
func Page(p Params) (Pagination, error) {
	page := 1
	if v, ok := p.lookup("page"); ok {
		n, err := parsePage(v)
		if err != nil {
			return Pagination{}, &ValidationError{Fields: []string{"page"}}
		}
		page = n
	}
	return Pagination{Page: page, Limit: PageSize, Offset: (page - 1) * PageSize}, nil
}

// ProjectListQuery builds the filter of the project listing endpoint. An empty
// predicate means no filter was supplied; callers decide what that lists.
func ProjectListQuery(p Params) (Predicate, error) {
	if err := ValidateProjectList(p).Err(); err != nil {
		return Predicate{}, err
	}
	var conds []Condition
	if s, ok := p.text("title"); ok {
		conds = append(conds, Pattern(FieldTitle, s))
	}
	if s, ok := p.text("tags"); ok {
		conds = append(conds, Pattern(FieldTags, s))
	}
	if s, ok := p.text("status"); ok {
		conds = append(conds, Exact(FieldStatus, domain.ProjectStatus(s)))
	}
	if s, ok := p.text("nature"); ok {
		conds = append(conds, Exact(FieldNature, domain.ProjectNature(s)))
	} else if s, ok := p.text("type"); ok {
		conds = append(conds, Exact(FieldNature, domain.ProjectNature(s)))
	}
	if s, ok := p.text("state"); ok {
		conds = append(conds, Exact(FieldState, s))
	}
	if v, ok := p.lookup("salary"); ok {
		threshold, _ := parseNumber(v)
		conds = append(conds, AtLeast(FieldSalary, threshold))
	}
	if v, ok := p.lookup("from"); ok {
		from, _ := parseDate(v)
		conds = append(conds, AtLeast(FieldFrom, from))
	}
	return NewPredicate(conds...), nil
}

var projectTextFields = []string{FieldTitle, FieldDescription, FieldNature, FieldState, FieldTags}

// ProjectSearchQueries builds one predicate per whitespace separated term of
// the search payload. Results of the predicates are meant to be unioned.
func ProjectSearchQueries(r SearchRequest) ([]Predicate, error) {
	if r.Blank() {
		return nil, ErrEmptyQuery
	}
	if err := ValidateSearch(r).Err(); err != nil {
		return nil, err
	}

	var base Predicate
	if present(r.Salary) {
		switch SalaryRequirement(strings.TrimSpace(*r.Salary)) {
		case SalaryRequired:
			base = base.With(GreaterThan(FieldSalary, 0))
		case SalaryNotRequired:
			base = base.With(IsZero(FieldSalary))
		}
	}
	if present(r.Type) {
		base = base.With(Exact(FieldNature, domain.ProjectNature(strings.TrimSpace(*r.Type))))
	}
	if present(r.Date) {
		from, _ := parseDate(*r.Date)
		base = base.With(AtLeast(FieldFrom, from))
	}

	terms := SearchTerms(r)
	if len(terms) == 0 {
		return []Predicate{base}, nil
	}
	out := make([]Predicate, 0, len(terms))
	for _, term := range terms {
		group := make([]Condition, 0, len(projectTextFields))
		for _, field := range projectTextFields {
			group = append(group, Pattern(field, term))
		}
		out = append(out, base.With(AnyOf(group...)))
	}
	return out, nil
}

// SearchTerms splits the free text term of r on whitespace.
func SearchTerms(r SearchRequest) []string {
	if r.SearchTerm == nil {
		return nil
	}
	return strings.Fields(*r.SearchTerm)
}

// OnlyTerm reports whether the free text term is the sole criterion.
func (r SearchRequest) OnlyTerm() bool {
	return present(r.SearchTerm) && !present(r.Salary) && !present(r.Type) && !present(r.Date)
}

func nameMatch(term string) Condition {
	return AnyOf(
		Pattern(FieldFirstName, term),
		Pattern(FieldLastName, term),
		Pattern(FieldUsername, term),
	)
}

// UserSearchQuery builds the filter of the user search endpoint.
func UserSearchQuery(p Params) (Predicate, error) {
	if err := ValidateUserSearch(p).Err(); err != nil {
		return Predicate{}, err
	}
	var conds []Condition
	if s, ok := p.text("name"); ok {
		conds = append(conds, nameMatch(s))
	}
	for _, field := range []string{FieldTitle, FieldPosition, FieldCity, FieldMajor} {
		if s, ok := p.text(field); ok {
			conds = append(conds, Pattern(field, s))
		}
	}
	if s, ok := p.text("state"); ok {
		conds = append(conds, Exact(FieldState, s))
	}
	if v, ok := p.lookup("isPolitician"); ok {
		b, _ := parseBool(v)
		conds = append(conds, Exact(FieldIsPolitician, b))
	}
	return NewPredicate(conds...), nil
}

// UserNameQueries builds one name predicate per term of the free text.
func UserNameQueries(term string) []Predicate {
	terms := strings.Fields(term)
	out := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		out = append(out, NewPredicate(nameMatch(t)))
	}
	return out
}

// ApplicationListQuery builds the optional status filter for applications.
func ApplicationListQuery(p Params) (Predicate, error) {
	if err := ValidateApplicationList(p).Err(); err != nil {
		return Predicate{}, err
	}
	if s, ok := p.text("status"); ok {
		return NewPredicate(Exact(FieldStatus, domain.ApplicationStatus(s))), nil
	}
	return Predicate{}, nil
}
