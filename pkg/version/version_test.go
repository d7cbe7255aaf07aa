package version

import "testing"

func TestString(t *testing.T) {
	b, c := Build, Commit
	t.Cleanup(func() { Build, Commit = b, c })

	Build, Commit = "1.2.0", ""
	if got := String(); got != "1.2.0" {
		t.Fatalf("String() = %q", got)
	}
	Commit = "abc123"
	if got := String(); got != "1.2.0 (abc123)" {
		t.Fatalf("String() = %q", got)
	}
}
