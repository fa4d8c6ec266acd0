package utils

import (
	"testing"
	"time"
)

func TestParseHHMM(t *testing.T) {
	cases := map[string]string{
		"7:05":  "07:05",
		"07:05": "07:05",
		"23:59": "23:59",
	}
	for in, want := range cases {
		got, ok := ParseHHMM(in)
		if !ok || got != want {
			t.Errorf("ParseHHMM(%q) = %q, %v", in, got, ok)
		}
	}
	for _, bad := range []string{"24:00", "7:5", "ab:cd", ""} {
		if _, ok := ParseHHMM(bad); ok {
			t.Errorf("ParseHHMM(%q) accepted", bad)
		}
	}
}

func TestLocationFallback(t *testing.T) {
	if loc := Location("Nowhere/City", "UTC"); loc.String() != "UTC" {
		t.Errorf("got %s", loc)
	}
	if loc := Location("", ""); loc != time.UTC {
		t.Errorf("got %s", loc)
	}
}
