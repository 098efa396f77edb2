package filter

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"
)

// Query parameter names.
const (
	KeyCategory = "category"
	KeyMinPrice = "minPrice"
	KeyMaxPrice = "maxPrice"
	KeySearch   = "search"
)

// ParseCriteria reads the filter state from query parameters. Absent or empty
// parameters take their defaults: category "All", minPrice 0, maxPrice defaultMaxPrice
// and an empty search. Prices use their leading integer part ("12.9" is 12, "7abc" is 7);
// a present price without leading digits is read as 0.
func ParseCriteria(q url.Values, defaultMaxPrice float64) Criteria {
	c := DefaultCriteria(defaultMaxPrice)
	if v := q.Get(KeyCategory); v != "" {
		c.Category = v
	}
	if v := q.Get(KeyMinPrice); v != "" {
		c.PriceRange[0] = parseIntPrefix(v)
	}
	if v := q.Get(KeyMaxPrice); v != "" {
		c.PriceRange[1] = parseIntPrefix(v)
	}
	c.SearchText = q.Get(KeySearch)
	return c
}

// SerializeCriteria writes the filter state, omitting every value equal to its default.
func SerializeCriteria(c Criteria, defaultMaxPrice float64) url.Values {
	q := url.Values{}
	if c.Category != "" && c.Category != AllCategories {
		q.Set(KeyCategory, c.Category)
	}
	if c.PriceRange[0] != 0 {
		q.Set(KeyMinPrice, formatPrice(c.PriceRange[0]))
	}
	if c.PriceRange[1] != defaultMaxPrice {
		q.Set(KeyMaxPrice, formatPrice(c.PriceRange[1]))
	}
	if c.SearchText != "" {
		q.Set(KeySearch, c.SearchText)
	}
	return q
}

// EncodeQuery is the canonical query string for c with keys in
// category, minPrice, maxPrice, search order.
func EncodeQuery(c Criteria, defaultMaxPrice float64) string {
	q := SerializeCriteria(c, defaultMaxPrice)
	var b strings.Builder
	for _, key := range []string{KeyCategory, KeyMinPrice, KeyMaxPrice, KeySearch} {
		v, ok := q[key]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v[0]))
	}
	return b.String()
}

// SubmitSearch applies a search box submission to the current parameters.
// The text is trimmed; empty text removes the search. Other parameters are kept.
func SubmitSearch(current url.Values, text string) url.Values {
	next := url.Values{}
	for k, v := range current {
		next[k] = append([]string(nil), v...)
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		next.Set(KeySearch, trimmed)
	} else {
		next.Del(KeySearch)
	}
	return next
}

// parseIntPrefix reads optional leading whitespace, an optional sign and the leading
// decimal digits. Input without leading digits yields 0.
func parseIntPrefix(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || v == 0 {
		return 0
	}
	return v
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
