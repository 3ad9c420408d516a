package fake

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var errFilter = errors.New("fake: unsupported filter")

// parseFilter supports the subset of the filter syntax used in tests:
// comparisons with = or != between a field and a literal, joined by &&.
// Literals are quoted strings, numbers, true, false or null.
func parseFilter(expr string) (func(map[string]any) bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return func(map[string]any) bool { return true }, nil
	}

	var terms []func(map[string]any) bool
	for _, part := range strings.Split(expr, "&&") {
		term, err := parseTerm(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return func(rec map[string]any) bool {
		for _, t := range terms {
			if !t(rec) {
				return false
			}
		}
		return true
	}, nil
}

func parseTerm(term string) (func(map[string]any) bool, error) {
	op, negate := "=", false
	if strings.Contains(term, "!=") {
		op, negate = "!=", true
	}
	field, lit, ok := strings.Cut(term, op)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errFilter, term)
	}
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, fmt.Errorf("%w: %q", errFilter, term)
	}
	want, err := parseLiteral(strings.TrimSpace(lit))
	if err != nil {
		return nil, err
	}
	return func(rec map[string]any) bool {
		return equal(rec[field], want) != negate
	}, nil
}

func parseLiteral(lit string) (any, error) {
	if n := len(lit); n >= 2 && (lit[0] == '\'' || lit[0] == '"') && lit[n-1] == lit[0] {
		return lit[1 : n-1], nil
	}
	switch lit {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("%w: literal %q", errFilter, lit)
}

func equal(got, want any) bool {
	if want == nil {
		return got == nil || got == ""
	}
	if w, ok := want.(float64); ok {
		g, ok := toFloat(got)
		return ok && g == w
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// sortRecords orders records by a comma separated list of fields, each
// optionally prefixed with - for descending order.
func sortRecords(recs []map[string]any, order string) {
	if strings.TrimSpace(order) == "" {
		return
	}
	keys := strings.Split(order, ",")
	sort.SliceStable(recs, func(i, j int) bool {
		for _, k := range keys {
			k = strings.TrimSpace(k)
			desc := strings.HasPrefix(k, "-")
			k = strings.TrimLeft(k, "+-")
			c := compare(recs[i][k], recs[j][k])
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compare(a, b any) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
