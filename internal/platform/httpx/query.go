package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/agrotrade/agrotrade/internal/shared"
)

const (
	defaultLimit = 20
	maxLimit     = 200
	// maxPage keeps (page-1)*limit far inside int range.
	maxPage = 1_000_000

	dateLayout = "2006-01-02"
)

// PathID parses the {name} URL parameter as a positive int64.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := cast.ToInt64E(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, shared.ErrNotFound
	}
	return id, nil
}

// QueryError lists malformed query parameters by name. It unwraps to
// shared.ErrValidation and RespondError renders it as a 400 problem.
type QueryError struct {
	Fields map[string]string
}

func (e *QueryError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	return "invalid query parameters: " + strings.Join(names, ", ")
}

func (e *QueryError) Unwrap() error { return shared.ErrValidation }

// QueryReader reads typed query parameters. Absent values come back nil;
// malformed ones are remembered and reported together by Err.
type QueryReader struct {
	values  url.Values
	invalid map[string]string
}

// NewQueryReader reads the query string of r.
func NewQueryReader(r *http.Request) *QueryReader {
	return &QueryReader{values: r.URL.Query()}
}

func (q *QueryReader) raw(key string) string {
	return strings.TrimSpace(q.values.Get(key))
}

func (q *QueryReader) reject(key, tag string) {
	if q.invalid == nil {
		q.invalid = make(map[string]string)
	}
	q.invalid[key] = tag
}

// String returns the trimmed value of key.
func (q *QueryReader) String(key string) string { return q.raw(key) }

// Int64 parses key as an integer.
func (q *QueryReader) Int64(key string) *int64 {
	raw := q.raw(key)
	if raw == "" {
		return nil
	}
	v, err := cast.ToInt64E(raw)
	if err != nil {
		q.reject(key, "integer")
		return nil
	}
	return &v
}

// Float parses key as a decimal number.
func (q *QueryReader) Float(key string) *float64 {
	raw := q.raw(key)
	if raw == "" {
		return nil
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		q.reject(key, "number")
		return nil
	}
	return &v
}

// Bool parses key as true/false/1/0.
func (q *QueryReader) Bool(key string) *bool {
	raw := q.raw(key)
	if raw == "" {
		return nil
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		q.reject(key, "boolean")
		return nil
	}
	return &v
}

// Date parses key as YYYY-MM-DD.
func (q *QueryReader) Date(key string) *time.Time {
	raw := q.raw(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		q.reject(key, "date")
		return nil
	}
	return &t
}

// Page reads page and limit. A missing page is 1 and a missing limit is
// 20; limit is clamped to 200, while a page past 1,000,000 is rejected.
func (q *QueryReader) Page() (page, limit int) {
	page, limit = 1, defaultLimit
	if p := q.Int64("page"); p != nil {
		switch {
		case *p > maxPage:
			q.reject("page", "max")
		case *p >= 1:
			page = int(*p)
		}
	}
	if l := q.Int64("limit"); l != nil && *l >= 1 {
		limit = int(min(*l, maxLimit))
	}
	return page, limit
}

// Err reports every malformed parameter read so far, or nil.
func (q *QueryReader) Err() error {
	if len(q.invalid) == 0 {
		return nil
	}
	return &QueryError{Fields: q.invalid}
}
