package airtable

import "strings"

// Quote renders s as an Airtable formula string literal.
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// Field renders a field reference, e.g. {EC-display}.
func Field(name string) string {
	return "{" + name + "}"
}

// ContainsFold is true when field contains term, ignoring case. Airtable
// formulas have no case-insensitive regex, so this is a plain substring test.
func ContainsFold(field, term string) string {
	return "FIND(LOWER(" + Quote(term) + "), LOWER(" + Field(field) + "))"
}

// Equals compares a field with a string literal.
func Equals(field, value string) string {
	return Field(field) + "=" + Quote(value)
}

// RecordIDIn matches any of ids.
func RecordIDIn(ids []string) string {
	if len(ids) == 0 {
		return "FALSE()"
	}
	conds := make([]string, 0, len(ids))
	for _, id := range ids {
		conds = append(conds, "RECORD_ID()="+Quote(id))
	}
	return Or(conds...)
}

func And(conds ...string) string {
	if len(conds) == 1 {
		return conds[0]
	}
	return "AND(" + strings.Join(conds, ", ") + ")"
}

func Or(conds ...string) string {
	if len(conds) == 1 {
		return conds[0]
	}
	return "OR(" + strings.Join(conds, ", ") + ")"
}
