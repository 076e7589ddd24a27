package search

import (
	"testing"

	"github.com/example/linkedreach/internal/models"
)

func TestBuildSearchParams(t *testing.T) {
	c := &models.Campaign{
		Keywords:    "software engineer",
		GeoURN:      "90000084",
		IndustryIDs: "4,6",
		Network:     `["F","S"]`,
	}
	want := `keywords=software%20engineer&geoUrn=["90000084"]&industry=["4","6"]&network=["F","S"]&origin=FACETED_SEARCH`
	if got := BuildSearchParams(c); got != want {
		t.Errorf("BuildSearchParams =\n  %s\nwant\n  %s", got, want)
	}
}

func TestBuildSearchParamsDeterministic(t *testing.T) {
	c := &models.Campaign{Keywords: "golang", GeoURN: "103644278", IndustryIDs: "4"}
	first := BuildSearchParams(c)
	for i := 0; i < 5; i++ {
		if got := BuildSearchParams(c); got != first {
			t.Fatalf("params changed between calls: %s vs %s", first, got)
		}
	}
}

func TestBuildSearchParamsOmitsEmptyFilters(t *testing.T) {
	c := &models.Campaign{Keywords: "golang"}
	want := `keywords=golang&network=["F","S"]&origin=FACETED_SEARCH`
	if got := BuildSearchParams(c); got != want {
		t.Errorf("BuildSearchParams = %s, want %s", got, want)
	}
}

func TestBuildSearchParamsLegacyFallbacks(t *testing.T) {
	c := &models.Campaign{
		Location: "102571732",
		Industry: "43",
	}
	want := `geoUrn=["102571732"]&industry=["43"]&network=["F","S"]&origin=FACETED_SEARCH`
	if got := BuildSearchParams(c); got != want {
		t.Errorf("legacy fallback params = %s, want %s", got, want)
	}
}

func TestNormalizeProfileURL(t *testing.T) {
	base := "https://www.linkedin.com"
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/in/jane-doe", base + "/in/jane-doe/"},
		{"/in/jane-doe/", base + "/in/jane-doe/"},
		{base + "/in/jane-doe?miniProfileUrn=abc", base + "/in/jane-doe/"},
		{base + "/in/jane-doe/#experience", base + "/in/jane-doe/"},
	}
	for _, tc := range cases {
		if got := NormalizeProfileURL(tc.in, base); got != tc.want {
			t.Errorf("NormalizeProfileURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
