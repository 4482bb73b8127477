package vndb

import (
	"strconv"
	"strings"
)

// Filter is one node of the boolean/comparison tree the API accepts as its
// query language, e.g. (title ~ "clannad" or original ~ "clannad").
type Filter interface {
	// String returns the fully parenthesized wire form of the expression.
	String() string

	expr() string
}

type cmp struct {
	field string
	op    string
	value string
}

func (c cmp) expr() string {
	return c.field + " " + c.op + " " + c.value
}

func (c cmp) String() string {
	return "(" + c.expr() + ")"
}

type group struct {
	op    string
	terms []Filter
}

func (g group) expr() string {
	parts := make([]string, len(g.terms))
	for i, t := range g.terms {
		parts[i] = t.expr()
	}
	return "(" + strings.Join(parts, " "+g.op+" ") + ")"
}

func (g group) String() string {
	return g.expr()
}

// Eq matches a field against an exact numeric id.
func Eq(field string, id int) Filter {
	return cmp{field: field, op: "=", value: strconv.Itoa(id)}
}

// Like matches a field with the API's fuzzy/substring operator.
func Like(field, s string) Filter {
	return cmp{field: field, op: "~", value: quote(s)}
}

// In matches set-valued fields (tags, traits) against a list of ids.
func In(field string, ids []int) Filter {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return cmp{field: field, op: "=", value: "[" + strings.Join(parts, ",") + "]"}
}

// And joins terms into a conjunction. A single term is returned as-is.
func And(terms ...Filter) Filter {
	if len(terms) == 1 {
		return terms[0]
	}
	return group{op: "and", terms: terms}
}

// Or joins terms into a disjunction. A single term is returned as-is.
func Or(terms ...Filter) Filter {
	if len(terms) == 1 {
		return terms[0]
	}
	return group{op: "or", terms: terms}
}

// TitleSearch builds the usual title-or-original fuzzy match for games.
func TitleSearch(q string) Filter {
	return Or(Like("title", q), Like("original", q))
}

// NameSearch builds the name-or-original fuzzy match for characters.
func NameSearch(q string) Filter {
	return Or(Like("name", q), Like("original", q))
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}
