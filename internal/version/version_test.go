package version

import (
	"strings"
	"testing"
)

func TestFullIncludesCommit(t *testing.T) {
	prevVersion, prevCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = prevVersion, prevCommit })

	Version, Commit = "1.2.3", "abc1234"
	if got := Full(); got != "ocdid-hub 1.2.3 (abc1234)" {
		t.Fatalf("unexpected version string: %s", got)
	}
	if ua := UserAgent(); !strings.HasPrefix(ua, "ocdid-hub/1.2.3") {
		t.Fatalf("unexpected user agent: %s", ua)
	}
}
