package metrics

import (
	"reflect"
	"strings"
	"testing"
)

func TestFlattenStatusHistogram(t *testing.T) {
	tests := []struct {
		name string
		hist map[int]int
		want []StatusBucket
	}{
		{
			name: "nil histogram",
			hist: nil,
			want: nil,
		},
		{
			name: "sorted by code",
			hist: map[int]int{503: 2, 200: 10, 0: 1},
			want: []StatusBucket{
				{Code: 0, Count: 1},
				{Code: 200, Count: 10},
				{Code: 503, Count: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenStatusHistogram(tt.hist)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FlattenStatusHistogram() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusBucketLabel(t *testing.T) {
	if got := (StatusBucket{Code: 0}).Label(); got != "none" {
		t.Errorf("Label() = %q, want none", got)
	}
	if got := (StatusBucket{Code: 429}).Label(); got != "429" {
		t.Errorf("Label() = %q, want 429", got)
	}
}

func TestSortedDetails(t *testing.T) {
	got := SortedDetails(map[string]int{"b": 2, "a": 2, "c": 5})
	want := []DetailCount{{"c", 5}, {"a", 2}, {"b", 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedDetails() = %v, want %v", got, want)
	}
}

func TestNormalizeDetail(t *testing.T) {
	if got := NormalizeDetail("  too\n many\t\tspaces  "); got != "too many spaces" {
		t.Errorf("NormalizeDetail() = %q", got)
	}
	long := strings.Repeat("x", 500)
	if got := NormalizeDetail(long); len(got) != maxDetailLen {
		t.Errorf("expected detail capped at %d, got %d", maxDetailLen, len(got))
	}
}

func TestErrorKindLabel(t *testing.T) {
	if ErrorKindTimeout.Label() != "Timeout" {
		t.Errorf("unexpected label %q", ErrorKindTimeout.Label())
	}
	if kind, ok := ParseErrorKind("HTTP_ERROR"); !ok || kind != ErrorKindHTTP {
		t.Errorf("ParseErrorKind() = %q, %v", kind, ok)
	}
	if _, ok := ParseErrorKind("bogus"); ok {
		t.Errorf("expected bogus kind to be rejected")
	}
}
