// Package query compiles declarative list descriptors (search columns,
// typed filters, sort keys) into gorm predicates and runs paginated listings.
// Every admin and public list endpoint goes through Run.
package query

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	dateLayout = "2006-01-02"
)

type FilterKind int

const (
	// Text matches the column exactly against the trimmed value.
	Text FilterKind = iota
	// Enum is Text restricted to Allowed values.
	Enum
	// ID matches a positive integer.
	ID
	// Bool accepts 0/1/true/false.
	Bool
	// MinDecimal and MaxDecimal bound a numeric column inclusively.
	MinDecimal
	MaxDecimal
	// DateFrom and DateTo bound a timestamp column by calendar day (YYYY-MM-DD).
	DateFrom
	DateTo
	// Custom delegates to Filter.Apply.
	Custom
)

// Filter describes one query parameter. Values that do not coerce to the
// filter's kind are ignored.
type Filter struct {
	Param   string
	Column  string
	Kind    FilterKind
	Allowed []string
	Apply   func(db *gorm.DB, raw string) (*gorm.DB, bool)
}

type Spec struct {
	// Table is the FROM clause, optionally aliased ("orders o").
	Table string
	// Select and Joins shape the data query only; Count runs against Table.
	Select []string
	Joins  []string

	SearchColumns []string
	Filters       []Filter

	Sorts       map[string]string
	DefaultSort string
	// TieBreaker is appended to every ORDER BY so pages never overlap.
	TieBreaker string
}

type Params struct {
	Search   string
	Sort     string
	Page     int
	PageSize int
	Values   map[string]string
}

type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

// ParseParams reads q, sort, page and limit plus the raw filter values.
// page floors at 1; limit defaults to 20 and is capped at 100.
func ParseParams(values url.Values) Params {
	p := Params{
		Search:   strings.TrimSpace(values.Get("q")),
		Sort:     strings.TrimSpace(values.Get("sort")),
		Page:     1,
		PageSize: DefaultPageSize,
		Values:   make(map[string]string, len(values)),
	}

	if n, err := strconv.Atoi(values.Get("page")); err == nil && n > 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(values.Get("limit")); err == nil && n >= 1 {
		p.PageSize = min(n, MaxPageSize)
	}

	for k, v := range values {
		if len(v) > 0 {
			p.Values[k] = strings.TrimSpace(v[0])
		}
	}
	return p
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// TotalPages is ceil(total/pageSize), never less than 1.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// Where applies search and filters to db.
func (s *Spec) Where(db *gorm.DB, p Params) *gorm.DB {
	if p.Search != "" && len(s.SearchColumns) > 0 {
		pattern := "%" + EscapeLike(strings.ToLower(p.Search)) + "%"
		parts := make([]string, len(s.SearchColumns))
		args := make([]interface{}, len(s.SearchColumns))
		for i, col := range s.SearchColumns {
			parts[i] = fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '!'", col)
			args[i] = pattern
		}
		db = db.Where("("+strings.Join(parts, " OR ")+")", args...)
	}

	for _, f := range s.Filters {
		raw, ok := p.Values[f.Param]
		if !ok || raw == "" {
			continue
		}
		db = f.apply(db, raw)
	}
	return db
}

// OrderBy resolves the sort key, falling back to DefaultSort.
func (s *Spec) OrderBy(key string) string {
	order, ok := s.Sorts[key]
	if !ok {
		order = s.Sorts[s.DefaultSort]
	}
	if s.TieBreaker == "" {
		return order
	}
	if order == "" {
		return s.TieBreaker
	}
	return order + ", " + s.TieBreaker
}

// Run counts the matching rows and loads the requested page into []T.
func Run[T any](ctx context.Context, db *gorm.DB, spec *Spec, p Params) (*Page[T], error) {
	var total int64
	countQ := spec.Where(db.WithContext(ctx).Table(spec.Table), p)
	if err := countQ.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count %s: %w", spec.Table, err)
	}

	items := make([]T, 0, p.PageSize)
	dataQ := db.WithContext(ctx).Table(spec.Table)
	if len(spec.Select) > 0 {
		dataQ = dataQ.Select(spec.Select)
	}
	for _, j := range spec.Joins {
		dataQ = dataQ.Joins(j)
	}
	dataQ = spec.Where(dataQ, p).
		Order(spec.OrderBy(p.Sort)).
		Limit(p.PageSize).
		Offset(p.Offset())
	if err := dataQ.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", spec.Table, err)
	}

	return &Page[T]{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: TotalPages(total, p.PageSize),
	}, nil
}

func (f Filter) apply(db *gorm.DB, raw string) *gorm.DB {
	switch f.Kind {
	case Text:
		return db.Where(f.Column+" = ?", raw)
	case Enum:
		for _, a := range f.Allowed {
			if a == raw {
				return db.Where(f.Column+" = ?", raw)
			}
		}
	case ID:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			return db.Where(f.Column+" = ?", n)
		}
	case Bool:
		if b, ok := ParseBool(raw); ok {
			return db.Where(f.Column+" = ?", b)
		}
	case MinDecimal:
		if d, err := decimal.NewFromString(raw); err == nil {
			return db.Where(f.Column+" >= ?", d)
		}
	case MaxDecimal:
		if d, err := decimal.NewFromString(raw); err == nil {
			return db.Where(f.Column+" <= ?", d)
		}
	case DateFrom:
		if day, ok := ParseDay(raw); ok {
			return db.Where(f.Column+" >= ?", day)
		}
	case DateTo:
		if day, ok := ParseDay(raw); ok {
			return db.Where(f.Column+" <= ?", EndOfDay(day))
		}
	case Custom:
		if f.Apply != nil {
			if next, ok := f.Apply(db, raw); ok {
				return next
			}
		}
	}
	return db
}

// ParseBool accepts 0/1/true/false.
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "1", "true":
		return true, true
	case "0", "false":
		return false, true
	}
	return false, false
}

// ParseDay parses YYYY-MM-DD as midnight UTC.
func ParseDay(raw string) (time.Time, bool) {
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EndOfDay returns 23:59:59 of day.
func EndOfDay(day time.Time) time.Time {
	return day.Add(24*time.Hour - time.Second)
}

// EscapeLike escapes LIKE wildcards using ! as the escape character.
func EscapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
