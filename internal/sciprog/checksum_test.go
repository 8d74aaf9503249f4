package sciprog

import (
	"strings"
	"testing"
)

func TestIsAncestryTag(t *testing.T) {
	tests := []struct {
		c    byte
		want bool
	}{
		{'O', true},
		{'A', true},
		{'S', true},
		{'o', false},
		{'X', false},
		{'0', false},
	}

	for _, tt := range tests {
		if got := isAncestryTag(tt.c); got != tt.want {
			t.Errorf("isAncestryTag(%q) = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestContentChecksumStability(t *testing.T) {
	obs := []Obs{{Instrument: "SCUBA-2", Target: "NGC 7027", Elapsed: 1200}}
	a := contentChecksum("A", nil, obs)
	b := contentChecksum("A", nil, obs)
	if a != b {
		t.Errorf("checksum not stable: %s != %s", a, b)
	}
	if c := contentChecksum("B", nil, obs); c == a {
		t.Error("different titles must not collide")
	}
	q := &SiteQuality{TauMax: 0.08}
	if c := contentChecksum("A", q, obs); c == a {
		t.Error("constraints must contribute to the checksum")
	}
	if strings.ToLower(a) != a {
		t.Error("checksum must be lower-case hex so ancestry tags cannot collide")
	}
}

func TestResolveStopsAtNonTagCharacter(t *testing.T) {
	p := New("p", "JCMT")
	m := p.msbView(p.AddMSB(p.Root(), "M", 1, Obs{Instrument: "HARP", Target: "x", Elapsed: 60}))

	// Garbage that merely ends in tag characters must not strip through
	// the hex part of the checksum.
	if _, ok := p.FindByChecksum("notachecksumOAS"); ok {
		t.Error("unexpected resolution of garbage checksum")
	}

	// A stale suffix longer than reality still resolves.
	if got, ok := p.FindByChecksum(m.Checksum + "OAS"); !ok || got.ID != m.ID {
		t.Errorf("stale suffixed checksum did not resolve: ok=%v", ok)
	}
}
