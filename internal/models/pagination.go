package models

import (
	"net/url"
	"strconv"
)

// Значения пагинации по умолчанию
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page - страница результатов списка.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

// ListParams - общие параметры списочных запросов.
type ListParams struct {
	Page   int
	Limit  int
	Search string
	Tag    string
	Sort   string
}

// Normalize приводит page/limit к допустимым значениям.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Query кодирует параметры в query string. Пустые поля пропускаются.
func (p ListParams) Query() url.Values {
	p = p.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.Limit))
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Tag != "" {
		q.Set("tag", p.Tag)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	return q
}

// Paginate возвращает срез items для страницы params (используется reference backend'ом).
func Paginate[T any](items []T, params ListParams) Page[T] {
	params = params.Normalize()
	total := len(items)
	start := total
	// Сравнение через число страниц: (Page-1)*Limit может переполнить int
	if params.Page-1 < (total+params.Limit-1)/params.Limit {
		start = (params.Page - 1) * params.Limit
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{
		Items:   out,
		Page:    params.Page,
		Limit:   params.Limit,
		Total:   total,
		HasMore: end < total,
	}
}
