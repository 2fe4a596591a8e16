package query

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProjectListPage(t *testing.T) {
	cases := []struct {
		name string
		page any
		ok   bool
	}{
		{name: "string integer", page: "2", ok: true},
		{name: "json integer", page: float64(2), ok: true},
		{name: "int", page: 3, ok: true},
		{name: "decimal string", page: "1.5", ok: false},
		{name: "decimal number", page: 1.5, ok: false},
		{name: "zero", page: "0", ok: false},
		{name: "negative", page: -1, ok: false},
		{name: "garbage", page: "abc", ok: false},
		{name: "boolean", page: true, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidateProjectList(Params{"page": tc.page})
			assert.Equal(t, tc.ok, res.OK)
			if !tc.ok {
				assert.Equal(t, []string{"page"}, res.Fields)
			}
		})
	}
}

func TestValidateRejectsUnknownState(t *testing.T) {
	res := ValidateUserSearch(Params{"state": "Nowhereland"})
	assert.False(t, res.OK)
	assert.Equal(t, []string{"state"}, res.Fields)

	assert.True(t, ValidateUserSearch(Params{"state": "Berlin"}).OK)
	assert.True(t, ValidateProjectList(Params{"state": "Baden-Württemberg"}).OK)
}

func TestValidateProjectListCollectsEveryInvalidField(t *testing.T) {
	res := ValidateProjectList(Params{
		"from":   "yesterday",
		"page":   "1",
		"salary": "lots",
		"status": "archived",
		"nature": "thesis",
		"title":  "anything goes",
	})
	require.False(t, res.OK)
	assert.Equal(t, []string{"from", "salary", "status"}, res.Fields)

	var verr *ValidationError
	require.True(t, errors.As(res.Err(), &verr))
	assert.Equal(t, []string{"from", "salary", "status"}, verr.Fields)
}

func TestValidateProjectListDates(t *testing.T) {
	for _, value := range []string{"2024-03-01", "2024-03-01T10:00:00", "2024-03-01T10:00:00Z"} {
		assert.True(t, ValidateProjectList(Params{"from": value}).OK, value)
	}
	assert.False(t, ValidateProjectList(Params{"from": "01.03.2024"}).OK)
}

func TestValidateIgnoresBlankValues(t *testing.T) {
	res := ValidateProjectList(Params{"page": "", "salary": "   ", "from": nil})
	assert.True(t, res.OK)
	assert.NoError(t, res.Err())
}

func TestValidateApplicationList(t *testing.T) {
	assert.True(t, ValidateApplicationList(Params{"status": "accepted"}).OK)
	res := ValidateApplicationList(Params{"status": "open"})
	assert.False(t, res.OK)
	assert.Equal(t, []string{"status"}, res.Fields)
}

func TestValidateUserSearchPolitician(t *testing.T) {
	assert.True(t, ValidateUserSearch(Params{"isPolitician": "true"}).OK)
	assert.True(t, ValidateUserSearch(Params{"isPolitician": false}).OK)
	assert.False(t, ValidateUserSearch(Params{"isPolitician": "maybe"}).OK)
}

func TestValidateSearch(t *testing.T) {
	str := func(s string) *string { return &s }

	assert.True(t, ValidateSearch(SearchRequest{Salary: str("REQUIRED"), Type: str("thesis")}).OK)
	assert.True(t, ValidateSearch(SearchRequest{SearchTerm: str("x")}).OK)

	res := ValidateSearch(SearchRequest{Salary: str("SOMETIMES"), Type: str("job"), Date: str("soon")})
	assert.False(t, res.OK)
	assert.Equal(t, []string{"salary", "type", "date"}, res.Fields)
}

func TestFromValuesKeepsFirstNonBlank(t *testing.T) {
	values := url.Values{
		"page":  {"", "3"},
		"title": {"Energy"},
		"state": {" "},
	}
	params := FromValues(values)
	assert.Equal(t, Params{"page": "3", "title": "Energy"}, params)
}

func TestValidateRejectsInvalidUTF8(t *testing.T) {
	values, err := url.ParseQuery("title=%FF&tags=ok&page=1")
	require.NoError(t, err)

	res := ValidateProjectList(FromValues(values))
	require.False(t, res.OK)
	assert.Equal(t, []string{"title"}, res.Fields)

	_, err = ProjectListQuery(FromValues(values))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"title"}, verr.Fields)

	res = ValidateUserSearch(Params{"name": "M\xfcller", "city": "Köln"})
	assert.Equal(t, []string{"name"}, res.Fields)

	res = ValidateApplicationList(Params{"status": "\xff"})
	assert.Equal(t, []string{"status"}, res.Fields, "an invalid value is reported once")

	term := "energie \xc3"
	res = ValidateSearch(SearchRequest{SearchTerm: &term})
	assert.Equal(t, []string{"searchTerm"}, res.Fields)

	valid := "Energiewende München"
	assert.True(t, ValidateSearch(SearchRequest{SearchTerm: &valid}).OK)
}
