package sqlgen

import "strings"

// operator describes how one filter operator renders to SQL.
type operator struct {
	// keyword sits between the quoted field and the bound placeholder,
	// e.g. "=", "<=", "LIKE", "IN".
	keyword string
	// pattern marks the LIKE/ILIKE family: literal \ % _ in the value are
	// escaped before any wildcard is added.
	pattern bool
	// prefix and suffix are wildcards wrapped around the escaped value,
	// e.g. suffix "%" for starts.with.
	prefix string
	suffix string
	// null renders "field IS [NOT ]NULL" from a boolean payload instead of
	// binding a parameter.
	null bool
}

// operators maps every operator name and alias to its rendering rule. Built
// once at startup and never mutated.
var operators = buildOperators()

func buildOperators() map[string]operator {
	ops := map[string]operator{
		"equal":        {keyword: "="},
		"not.equal":    {keyword: "!="},
		"less":         {keyword: "<"},
		"at.most":      {keyword: "<="},
		"greater":      {keyword: ">"},
		"at.least":     {keyword: ">="},
		"like":         {keyword: "LIKE", pattern: true},
		"ilike":        {keyword: "ILIKE", pattern: true},
		"is.null":      {null: true},
		"starts.with":  {keyword: "LIKE", pattern: true, suffix: "%"},
		"istarts.with": {keyword: "ILIKE", pattern: true, suffix: "%"},
		"iends.with":   {keyword: "ILIKE", pattern: true, prefix: "%"},
		"contains":     {keyword: "LIKE", pattern: true, prefix: "%", suffix: "%"},
		"icontains":    {keyword: "ILIKE", pattern: true, prefix: "%", suffix: "%"},
		"in":           {keyword: "IN"},
	}

	aliases := map[string]string{
		"eq":            "equal",
		"equals":        "equal",
		"=":             "equal",
		"ne":            "not.equal",
		"!=":            "not.equal",
		"<>":            "not.equal",
		"less.than":     "less",
		"<":             "less",
		"less.equal":    "at.most",
		"<=":            "at.most",
		"greater.than":  "greater",
		">":             "greater",
		"greater.equal": "at.least",
		">=":            "at.least",
		"~":             "like",
		"~~":            "ilike",
	}
	for alias, canonical := range aliases {
		ops[alias] = ops[canonical]
	}
	return ops
}

// escapeLike escapes backslash and the LIKE wildcards in a literal value, so
// user input never acts as a pattern. Wildcards added by the operator's
// translation rule come after this step.
func escapeLike(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "%", `\%`)
	value = strings.ReplaceAll(value, "_", `\_`)
	return value
}
