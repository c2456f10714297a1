package fsutil

import (
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"promap", "promap"},
		{"STKDE resample=5000", "STKDE_resample_5000"},
		{"../../etc/passwd", "etc_passwd"},
		{"layers/2017-10/d3", "layers_2017-10_d3"},
		{"  spaced  ", "spaced"},
		{"", "unknown"},
		{"///", "unknown"},
		{"._hidden", "hidden"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			if got := SanitizeName(tc.in); got != tc.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeNameLength(t *testing.T) {
	got := SanitizeName(strings.Repeat("a", 300))
	if len(got) != maxNameLen {
		t.Errorf("len = %d, want %d", len(got), maxNameLen)
	}
}
