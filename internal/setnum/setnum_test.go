package setnum

import "testing"

func TestToPlain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"21355-1", "21355"},
		{"21355", "21355"},
		{" 21355-2 ", "21355"},
		{"4000045-1", "4000045"},
		{"", ""},
		{"   ", ""},
		{"-1", ""},
	}
	for _, tt := range tests {
		if got := ToPlain(tt.in); got != tt.want {
			t.Errorf("ToPlain(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestToVariant(t *testing.T) {
	tests := []struct {
		in    string
		index int
		want  string
	}{
		{"21355", 1, "21355-1"},
		{"21355-1", 1, "21355-1"},
		{"21355-1", 2, "21355-2"},
		{"", 1, ""},
		{"  ", 3, ""},
	}
	for _, tt := range tests {
		if got := ToVariant(tt.in, tt.index); got != tt.want {
			t.Errorf("ToVariant(%q, %d) = %q; want %q", tt.in, tt.index, got, tt.want)
		}
	}
}

// Round-tripping any ref through the default variant must not change
// its plain form.
func TestPlainVariantRoundTrip(t *testing.T) {
	refs := []string{"21355", "21355-1", "21355-2", "4000045-1", "10", ""}
	for _, r := range refs {
		if got := ToPlain(ToDefaultVariant(ToPlain(r))); got != ToPlain(r) {
			t.Errorf("round trip of %q changed plain form: %q != %q", r, got, ToPlain(r))
		}
	}
}

func TestIsFullRef(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"21355-1", true},
		{"21355", false},
		{"21355-", false},
		{"-1", false},
		{"21355-1-2", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsFullRef(tt.in); got != tt.want {
			t.Errorf("IsFullRef(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"21355", "21355-1", true},
		{"21355-1", "21355-2", true},
		{"21355", "21356", false},
		{"", "", false},
		{"", "21355", false},
	}
	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%q, %q) = %v; want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestContainsRef(t *testing.T) {
	refs := []string{"21355-1", "4000045", " 10276-1 "}
	tests := []struct {
		ref  string
		want bool
	}{
		{"21355-1", true},
		{"21355", true},
		{"4000045-1", true},
		{"10276", true},
		{"9999", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ContainsRef(refs, tt.ref); got != tt.want {
			t.Errorf("ContainsRef(refs, %q) = %v; want %v", tt.ref, got, tt.want)
		}
	}
}

func TestDedupe(t *testing.T) {
	in := []string{"21355-1", "21355", "", "4000045", "21355-2", "4000045-1"}
	want := []string{"21355-1", "4000045"}
	got := Dedupe(in)
	if len(got) != len(want) {
		t.Fatalf("Dedupe = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Dedupe[%d] = %q; want %q", i, got[i], want[i])
		}
	}
}
