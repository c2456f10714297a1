package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldSHA, oldBuild := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldBuild })

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2017-10-01T00:00:00Z"
	want := "hotspot 1.2.0 (abc123, built 2017-10-01T00:00:00Z)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
