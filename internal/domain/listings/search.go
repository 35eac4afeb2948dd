package listings

import (
	"strings"
)

const (
	defaultSearchLimit = 12
	maxSearchLimit     = 60
	FeaturedLimit      = 6
	// MaxPage bounds paging so the offset cannot overflow.
	MaxPage = 10000
)

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	Owner           OwnerID
	Location        string
	PropertyType    string
	MinPriceCents   int64
	MaxPriceCents   int64
	Amenities       []string
	Page            int
	Limit           int
	IncludeInactive bool
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.Location = strings.TrimSpace(strings.ToLower(normalized.Location))
	normalized.PropertyType = strings.TrimSpace(strings.ToLower(normalized.PropertyType))
	normalized.Amenities = normalizeTokens(normalized.Amenities)
	if normalized.MinPriceCents < 0 {
		normalized.MinPriceCents = 0
	}
	if normalized.MaxPriceCents < 0 {
		normalized.MaxPriceCents = 0
	}
	if normalized.MaxPriceCents > 0 && normalized.MaxPriceCents < normalized.MinPriceCents {
		normalized.MaxPriceCents = 0
	}
	if normalized.Page <= 0 {
		normalized.Page = 1
	}
	if normalized.Page > MaxPage {
		normalized.Page = MaxPage
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	return normalized
}

// Offset is the index of the first hit on the requested page.
func (p SearchParams) Offset() int {
	n := p.Normalized()
	return (n.Page - 1) * n.Limit
}

// Matches applies every filter except paging. params must be normalized.
func (p SearchParams) Matches(l *Listing) bool {
	if l == nil {
		return false
	}
	if !p.IncludeInactive && !l.Active {
		return false
	}
	if p.Owner != "" && l.Owner != p.Owner {
		return false
	}
	if p.Location != "" &&
		!strings.Contains(strings.ToLower(l.Location.City), p.Location) &&
		!strings.Contains(strings.ToLower(l.Location.Address), p.Location) {
		return false
	}
	if p.PropertyType != "" && string(l.PropertyType) != p.PropertyType {
		return false
	}
	if p.MinPriceCents > 0 && l.PriceCents < p.MinPriceCents {
		return false
	}
	if p.MaxPriceCents > 0 && l.PriceCents > p.MaxPriceCents {
		return false
	}
	return containsAll(l.Amenities, p.Amenities)
}

func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, v := range have {
		set[strings.ToLower(v)] = struct{}{}
	}
	for _, v := range want {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

func normalizeTokens(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

// SearchResult wraps search hits with paging meta.
type SearchResult struct {
	Items      []*Listing
	Total      int
	Page       int
	TotalPages int
}

// NewSearchResult fills paging meta for a page of hits.
func NewSearchResult(items []*Listing, total int, params SearchParams) SearchResult {
	n := params.Normalized()
	pages := 0
	if total > 0 {
		pages = (total + n.Limit - 1) / n.Limit
	}
	return SearchResult{Items: items, Total: total, Page: n.Page, TotalPages: pages}
}
