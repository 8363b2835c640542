// Package query filters, sorts and paginates entity lists read from the
// store. Every function is pure: inputs are never modified.
package query

import (
	"cmp"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/garnizeh/talentflow/internal/errs"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

const (
	Asc  = "asc"
	Desc = "desc"
)

// Params are the paging and sorting inputs shared by every collection.
type Params struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is one page of results. Data is never nil.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Comparators maps a sort key to an ascending comparison.
type Comparators[T any] map[string]func(a, b T) int

// Sort names the default key and direction of a collection.
type Sort struct {
	By    string
	Order string
}

// Run keeps the items accepted by match, sorts them stably (ties keep input
// order, which callers pass in insertion order) and cuts the requested page.
func Run[T any](items []T, p Params, match func(T) bool, sorts Comparators[T], def Sort) (Page[T], error) {
	p = p.normalized()
	by, order := p.SortBy, strings.ToLower(p.SortOrder)
	if by == "" {
		by = def.By
		if order == "" {
			order = def.Order
		}
	}
	if order == "" {
		order = Asc
	}
	less, ok := sorts[by]
	if !ok {
		return Page[T]{}, errs.Validation("unsupported sort key", map[string]string{"sortBy": by})
	}
	if order != Asc && order != Desc {
		return Page[T]{}, errs.Validation("unsupported sort order", map[string]string{"sortOrder": p.SortOrder})
	}

	kept := make([]T, 0, len(items))
	for _, it := range items {
		if match == nil || match(it) {
			kept = append(kept, it)
		}
	}
	slices.SortStableFunc(kept, func(a, b T) int {
		if order == Desc {
			return less(b, a)
		}
		return less(a, b)
	})

	total := len(kept)
	pages := (total + p.Limit - 1) / p.Limit
	out := Page[T]{
		Data:       []T{},
		Pagination: Pagination{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages},
	}
	start := (p.Page - 1) * p.Limit
	if start < total {
		end := min(start+p.Limit, total)
		out.Data = append(out.Data, kept[start:end]...)
	}
	return out, nil
}

func (p Params) normalized() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// FromValues reads the shared parameters from a query string.
func FromValues(v url.Values) (Params, error) {
	p := Params{
		Search:    v.Get("search"),
		SortBy:    v.Get("sortBy"),
		SortOrder: v.Get("sortOrder"),
	}
	var err error
	if p.Page, err = intParam(v, "page"); err != nil {
		return p, err
	}
	if p.Limit, err = intParam(v, "limit"); err != nil {
		return p, err
	}
	return p, nil
}

// Values encodes the non-zero parameters.
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	setNonEmpty(v, "search", p.Search)
	setNonEmpty(v, "sortBy", p.SortBy)
	setNonEmpty(v, "sortOrder", p.SortOrder)
	return v
}

func intParam(v url.Values, key string) (int, error) {
	s := v.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.Validation("invalid query parameter", map[string]string{key: "must be an integer"})
	}
	return n, nil
}

func setNonEmpty(v url.Values, key, val string) {
	if val != "" {
		v.Set(key, val)
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func compareFold(a, b string) int {
	return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
}
