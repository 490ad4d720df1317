package model

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Query is a free text search term. Matching is case-insensitive and
// unanchored. On regex capable backends the raw term is used as a regular
// expression, so metacharacters are meaningful ("^Sun" matches names
// starting with Sun).
//
// Backends without regex support use ContainsFold, which only matches the
// lower-cased term as a plain substring. A term such as "C++" is therefore
// valid there even though it does not compile as a pattern.
type Query struct {
	term  string
	re    *regexp.Regexp
	reErr error
}

// NewQuery validates term. Blank terms yield ErrEmptyQuery. Whether the
// term compiles as a pattern is reported by ValidPattern.
func NewQuery(term string) (*Query, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, goerr.Wrap(ErrEmptyQuery, "search term is blank")
	}

	q := &Query{term: term}
	re, err := regexp.Compile("(?i)" + term)
	if err != nil {
		q.reErr = goerr.Wrap(ErrInvalidQuery, "search term is not a valid pattern",
			goerr.V(QueryKey, term),
			goerr.V("reason", err.Error()))
	} else {
		q.re = re
	}
	return q, nil
}

// ValidPattern returns ErrInvalidQuery when the term does not compile as a
// regular expression. Regex capable backends check it before searching.
func (q *Query) ValidPattern() error {
	return q.reErr
}

// Term returns the trimmed term as entered.
func (q *Query) Term() string {
	return q.term
}

// Pattern returns the raw pattern for a native regex operator such as
// PostgreSQL ~*.
func (q *Query) Pattern() string {
	return q.term
}

// Substring returns the lower-cased term for substring matching.
func (q *Query) Substring() string {
	return strings.ToLower(q.term)
}

// Match reports whether s matches the pattern. A term that is not a valid
// pattern is matched as a plain substring.
func (q *Query) Match(s string) bool {
	if q.re == nil {
		return q.ContainsFold(s)
	}
	return q.re.MatchString(s)
}

// ContainsFold reports whether s contains the term as a plain substring,
// ignoring case.
func (q *Query) ContainsFold(s string) bool {
	return strings.Contains(strings.ToLower(s), q.Substring())
}

// MatchContact matches first name, last name, "first last", and the name
// and abbreviation of every organisation of the contact.
func (q *Query) MatchContact(c *Contact) bool {
	if c == nil {
		return false
	}
	if q.Match(c.FirstName) || q.Match(c.LastName) || q.Match(c.FirstName+" "+c.LastName) {
		return true
	}
	for _, o := range c.Organisations {
		if q.MatchOrganisation(o) {
			return true
		}
	}
	return false
}

// MatchOrganisation matches name and abbreviation.
func (q *Query) MatchOrganisation(o *Organisation) bool {
	if o == nil {
		return false
	}
	return q.Match(o.Name) || (o.Abbreviation != "" && q.Match(o.Abbreviation))
}

// MatchMessage reports whether any tagged contact matches.
func (q *Query) MatchMessage(m *Message) bool {
	if m == nil {
		return false
	}
	for _, c := range m.Contacts {
		if q.MatchContact(c) {
			return true
		}
	}
	return false
}

// SQLCondition builds "col1 ~* ? OR col2 ~* ? ..." and the matching
// arguments for a PostgreSQL WHERE clause.
func (q *Query) SQLCondition(columns ...string) (string, []any) {
	conds := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, col := range columns {
		conds = append(conds, col+" ~* ?")
		args = append(args, q.term)
	}
	return strings.Join(conds, " OR "), args
}
