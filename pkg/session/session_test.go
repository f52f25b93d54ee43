package session

import "testing"

func TestStripANSI(t *testing.T) {
	in := "\x1b[32mLEAF-A#\x1b[0m show version\r\n"
	got := stripANSI(in)
	want := "LEAF-A# show version\n"
	if got != want {
		t.Errorf("stripANSI(%q) = %q, want %q", in, got, want)
	}
}

func TestPromptEnd(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"LEAF-A# ", true},
		{"LEAF-A(config)# ", true},
		{"LEAF-A> ", true},
		{"show version", false},
		{"", false},
		{"   \n", false},
	}
	for _, c := range cases {
		if got := promptEnd(c.in); got != c.want {
			t.Errorf("promptEnd(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestContainsErrorMarker(t *testing.T) {
	cases := []struct {
		in      string
		wantHit bool
	}{
		{"interface ge100-0/0/0\nERROR: invalid interface name\n", true},
		{"commit complete\n", false},
		{"% Unknown command: foo\n", true},
		{"LEAF-A#", false},
	}
	for _, c := range cases {
		_, hit := containsErrorMarker(c.in)
		if hit != c.wantHit {
			t.Errorf("containsErrorMarker(%q) hit = %v, want %v", c.in, hit, c.wantHit)
		}
	}
}
