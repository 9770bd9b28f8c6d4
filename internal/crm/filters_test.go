package crm

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestEncodeFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters FilterSet
		want    string
	}{
		{
			name: "timestamps and limit",
			filters: FilterSet{
				{Key: "since", Value: "2017-01-01T22:17:59.039Z"},
				{Key: "until", Value: "2017-01-01T22:17:59.039Z"},
				{Key: "limit", Value: 20},
			},
			want: "?since=2017-01-01T22%3A17%3A59.039Z&until=2017-01-01T22%3A17%3A59.039Z&limit=20",
		},
		{
			name:    "empty set",
			filters: FilterSet{},
			want:    "?",
		},
		{
			name:    "nil set",
			filters: nil,
			want:    "?",
		},
		{
			name: "reserved characters and spaces",
			filters: FilterSet{
				{Key: "q", Value: "a b&c=d/e?f#g+h"},
			},
			want: "?q=a%20b%26c%3Dd%2Fe%3Ff%23g%2Bh",
		},
		{
			name: "unreserved marks are kept",
			filters: FilterSet{
				{Key: "mark", Value: "-_.!~*'()"},
			},
			want: "?mark=-_.!~*'()",
		},
		{
			name: "non-ascii",
			filters: FilterSet{
				{Key: "name", Value: "Zoë 日本"},
			},
			want: "?name=Zo%C3%AB%20%E6%97%A5%E6%9C%AC",
		},
		{
			name: "escaped key",
			filters: FilterSet{
				{Key: "order by", Value: "date"},
			},
			want: "?order%20by=date",
		},
		{
			name: "scalar kinds",
			filters: FilterSet{
				{Key: "time", Value: time.Date(2017, 1, 1, 22, 17, 59, 39_000_000, time.UTC)},
				{Key: "float", Value: 1.5},
				{Key: "bool", Value: true},
				{Key: "id", Value: int64(42)},
			},
			want: "?time=2017-01-01T22%3A17%3A59.039Z&float=1.5&bool=true&id=42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeFilters(tt.filters); got != tt.want {
				t.Errorf("EncodeFilters() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEncodeFilters_RoundTrip(t *testing.T) {
	filters := FilterSet{
		{Key: "since", Value: "2017-01-01T22:17:59.039Z"},
		{Key: "email", Value: "someone+tag@example.com"},
		{Key: "note", Value: "50% off; \"quoted\" & <tagged>"},
		{Key: "ключ", Value: "значение 🙂"},
		{Key: "empty", Value: ""},
	}

	encoded := EncodeFilters(filters)
	query, ok := strings.CutPrefix(encoded, "?")
	if !ok {
		t.Fatalf("Missing query marker: %s", encoded)
	}

	pairs := strings.Split(query, "&")
	if len(pairs) != len(filters) {
		t.Fatalf("Expected %d pairs, got %d: %s", len(filters), len(pairs), encoded)
	}

	for i, pair := range pairs {
		k, v, found := strings.Cut(pair, "=")
		if !found {
			t.Fatalf("Pair without '=': %s", pair)
		}
		// PathUnescape is the URI component decoder: it does not turn '+' into a space.
		key, err := url.PathUnescape(k)
		if err != nil {
			t.Fatalf("Failed to decode key %q: %v", k, err)
		}
		value, err := url.PathUnescape(v)
		if err != nil {
			t.Fatalf("Failed to decode value %q: %v", v, err)
		}
		if key != filters[i].Key || value != filters[i].Value {
			t.Errorf("Pair %d decoded to %q=%q, want %q=%q", i, key, value, filters[i].Key, filters[i].Value)
		}
	}
}

func TestFilterSet_Set(t *testing.T) {
	f := FilterSet{}.Set("limit", 10).Set("offset", 5).Set("limit", 20)

	if got := EncodeFilters(f); got != "?limit=20&offset=5" {
		t.Errorf("Unexpected encoding: %s", got)
	}
}

func TestFiltersFromMap(t *testing.T) {
	f := FiltersFromMap(map[string]any{"until": "b", "limit": 5, "since": "a"})

	if got := EncodeFilters(f); got != "?limit=5&since=a&until=b" {
		t.Errorf("Unexpected encoding: %s", got)
	}
}

func TestTypedFilters(t *testing.T) {
	since := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filters FilterSet
		want    string
	}{
		{
			name:    "zero commission filters",
			filters: CommissionFilters{}.FilterSet(),
			want:    "?",
		},
		{
			name:    "commission filters",
			filters: CommissionFilters{AffiliateID: 7, Since: since, Limit: 50}.FilterSet(),
			want:    "?affiliateId=7&since=2017-01-01T00%3A00%3A00.000Z&limit=50",
		},
		{
			name:    "appointment filters",
			filters: AppointmentFilters{ContactID: 12, Until: since, Offset: 100}.FilterSet(),
			want:    "?contact_id=12&until=2017-01-01T00%3A00%3A00.000Z&offset=100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeFilters(tt.filters); got != tt.want {
				t.Errorf("EncodeFilters() = %s, want %s", got, tt.want)
			}
		})
	}
}
