package db

import (
	"strconv"
	"strings"
)

// Where accumulates AND-ed conditions with positional arguments.
type Where struct {
	conds []string
	args  []any
}

// Add appends a condition; every "?" in cond is replaced by the next positional placeholder.
func (w *Where) Add(cond string, args ...any) {
	var b strings.Builder
	i := 0
	for _, r := range cond {
		if r == '?' && i < len(args) {
			w.args = append(w.args, args[i])
			b.WriteString("$" + strconv.Itoa(len(w.args)))
			i++
			continue
		}
		b.WriteRune(r)
	}
	w.conds = append(w.conds, b.String())
}

// SQL renders the WHERE clause, or an empty string when there are no conditions.
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Args returns the accumulated arguments.
func (w *Where) Args() []any {
	return w.args
}

// Next returns the placeholder for an argument appended after the conditions.
func (w *Where) Next(arg any) string {
	w.args = append(w.args, arg)
	return "$" + strconv.Itoa(len(w.args))
}

// OrderBy resolves a whitelisted sort column, falling back to def.
func OrderBy(columns map[string]string, sortBy, sortDir, def string) string {
	col, ok := columns[sortBy]
	if !ok {
		col = columns[def]
	}
	dir := "ASC"
	if strings.EqualFold(sortDir, "desc") {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir
}
