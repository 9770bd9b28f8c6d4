package crm

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Filter is one query criterion.
type Filter struct {
	Key   string
	Value any
}

// FilterSet is an ordered list of query criteria for list endpoints.
// Values are scalars: strings, numbers, bools, time.Time or fmt.Stringer.
type FilterSet []Filter

// Set returns the set with key bound to value, replacing an earlier binding in place.
func (f FilterSet) Set(key string, value any) FilterSet {
	for i := range f {
		if f[i].Key == key {
			f[i].Value = value
			return f
		}
	}
	return append(f, Filter{Key: key, Value: value})
}

// FiltersFromMap builds a FilterSet from m with keys in sorted order.
func FiltersFromMap(m map[string]any) FilterSet {
	f := make(FilterSet, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		f = append(f, Filter{Key: k, Value: m[k]})
	}
	return f
}

// EncodeFilters renders filters as "?k1=v1&k2=v2", escaping every key and value
// as a URI component. An empty set yields a bare "?".
func EncodeFilters(filters FilterSet) string {
	var b strings.Builder
	b.WriteByte('?')
	for i, f := range filters {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escapeComponent(f.Key))
		b.WriteByte('=')
		b.WriteString(escapeComponent(formatValue(f.Value)))
	}
	return b.String()
}

// timestampLayout matches the provider's ISO-8601 timestamps, e.g. 2017-01-01T22:17:59.039Z.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.UTC().Format(timestampLayout)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(timestampLayout)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

const upperhex = "0123456789ABCDEF"

// escapeComponent percent-encodes every byte of s outside the URI component
// unreserved set. net/url has no equivalent: QueryEscape turns spaces into '+'
// and escapes !'()*, PathEscape leaves ':' and '&' alone.
func escapeComponent(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	buf := make([]byte, 0, len(s)+2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			buf = append(buf, c)
			continue
		}
		buf = append(buf, '%', upperhex[c>>4], upperhex[c&15])
	}
	return string(buf)
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// CommissionFilters are the criteria accepted by the affiliate commissions listing.
// Zero fields are omitted.
type CommissionFilters struct {
	AffiliateID int64
	Since       time.Time
	Until       time.Time
	Limit       int
	Offset      int
}

// FilterSet converts the criteria to the provider's query parameters.
func (c CommissionFilters) FilterSet() FilterSet {
	var f FilterSet
	if c.AffiliateID != 0 {
		f = f.Set("affiliateId", c.AffiliateID)
	}
	f = appendWindow(f, c.Since, c.Until, c.Limit, c.Offset)
	return f
}

// AppointmentFilters are the criteria accepted by the appointments listing.
// Zero fields are omitted.
type AppointmentFilters struct {
	ContactID int64
	Since     time.Time
	Until     time.Time
	Limit     int
	Offset    int
}

// FilterSet converts the criteria to the provider's query parameters.
func (a AppointmentFilters) FilterSet() FilterSet {
	var f FilterSet
	if a.ContactID != 0 {
		f = f.Set("contact_id", a.ContactID)
	}
	f = appendWindow(f, a.Since, a.Until, a.Limit, a.Offset)
	return f
}

func appendWindow(f FilterSet, since, until time.Time, limit, offset int) FilterSet {
	if !since.IsZero() {
		f = f.Set("since", since)
	}
	if !until.IsZero() {
		f = f.Set("until", until)
	}
	if limit > 0 {
		f = f.Set("limit", limit)
	}
	if offset > 0 {
		f = f.Set("offset", offset)
	}
	return f
}
