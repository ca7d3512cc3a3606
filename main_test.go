package main

import "testing"

func TestParseLatLon(t *testing.T) {
	lat, lon, err := parseLatLon("56.8389, 60.6057")
	if err != nil {
		t.Fatalf("parseLatLon: %v", err)
	}
	if lat != 56.8389 || lon != 60.6057 {
		t.Errorf("got %v,%v", lat, lon)
	}

	for _, bad := range []string{"", "56.8", "56.8,x", "1,2,3", "95,60"} {
		if _, _, err := parseLatLon(bad); err == nil {
			t.Errorf("parseLatLon(%q): expected error", bad)
		}
	}
}
