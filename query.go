package pocketbase

import (
	"net/url"
	"strconv"
	"strings"
)

// ViewOptions are the query parameters accepted when reading, creating or
// updating a single record.
type ViewOptions struct {
	// Fields is a comma separated list of fields to return.
	Fields string
	// Expand lists relations to expand.
	Expand string
	// Sort sets the records order attribute.
	Sort string
}

// ListOptions are the query parameters of the records list endpoint.
// Zero values are omitted from the query string.
type ListOptions struct {
	// Page starts at 1.
	Page    int
	PerPage int
	// SkipTotal is tri-state: nil omits the parameter.
	SkipTotal *bool
	Filter    string
	Fields    string
	Expand    string
	Sort      string
}

// Paginated returns options that only select a page.
func Paginated(page, perPage int) ListOptions {
	return ListOptions{Page: page, PerPage: perPage}
}

// PaginatedAndSkip is Paginated with skipTotal set, which spares the backend
// a COUNT on large collections.
func PaginatedAndSkip(page, perPage int) ListOptions {
	skip := true
	return ListOptions{Page: page, PerPage: perPage, SkipTotal: &skip}
}

// ListOptionsFromView builds list options from view options plus a filter.
// skipTotal is always set.
func ListOptionsFromView(page, perPage int, filter string, view *ViewOptions) ListOptions {
	opts := PaginatedAndSkip(page, perPage)
	opts.Filter = filter
	if view != nil {
		opts.Fields = view.Fields
		opts.Expand = view.Expand
		opts.Sort = view.Sort
	}
	return opts
}

// Encode returns the query string, including the leading "?", or "" when no
// parameter is set. Parameters are written in a fixed order.
func (o ListOptions) Encode() string {
	var q queryBuilder
	if o.Page != 0 {
		q.add("page", strconv.Itoa(o.Page))
	}
	if o.PerPage != 0 {
		q.add("perPage", strconv.Itoa(o.PerPage))
	}
	if o.SkipTotal != nil {
		if *o.SkipTotal {
			q.add("skipTotal", "1")
		} else {
			q.add("skipTotal", "0")
		}
	}
	q.addString("filter", o.Filter)
	q.addString("fields", o.Fields)
	q.addString("expand", o.Expand)
	q.addString("sort", o.Sort)
	return q.String()
}

// Encode returns the query string for single-record requests. Only expand and
// sort are sent.
func (o *ViewOptions) Encode() string {
	if o == nil {
		return ""
	}
	var q queryBuilder
	q.addString("expand", o.Expand)
	q.addString("sort", o.Sort)
	return q.String()
}

type queryBuilder struct {
	pairs []string
}

func (q *queryBuilder) add(key, value string) {
	q.pairs = append(q.pairs, key+"="+value)
}

func (q *queryBuilder) addString(key, value string) {
	if value != "" {
		q.add(key, escape(value))
	}
}

func (q *queryBuilder) String() string {
	if len(q.pairs) == 0 {
		return ""
	}
	return "?" + strings.Join(q.pairs, "&")
}

// escape percent-encodes everything but unreserved characters, with spaces
// as %20 rather than "+".
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
