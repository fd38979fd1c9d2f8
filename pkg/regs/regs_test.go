package regs

import (
	"testing"

	"github.com/jiiink/z80asm/pkg/dialect"
)

func TestLookup(t *testing.T) {
	cases := []struct {
		name string
		want Reg
		ok   bool
	}{
		{"A", A, true},
		{"b", B, true},
		{"HL", HL | Arith | Stackable, true},
		{"ix", IX | Arith | Stackable | IXFlag, true},
		{"F", F, true},
		{"IXH", IXH | IXFlag, true},
		{"QQ", 0, false},
	}
	for _, c := range cases {
		got, ok := Lookup(c.name)
		if ok != c.ok || got != c.want {
			t.Errorf("Lookup(%q) = (%#x, %v), want (%#x, %v)", c.name, got, ok, c.want, c.ok)
		}
	}
}

func TestIsReg8(t *testing.T) {
	for _, r := range []Reg{B, C, D, E, H, L, A} {
		if !IsReg8(r) {
			t.Errorf("IsReg8(%#x) = false, want true", r)
		}
	}
	if IsReg8(HL | Arith | Stackable) {
		t.Errorf("IsReg8(HL) = true, want false")
	}
	if IsReg8(IXH | IXFlag) {
		t.Errorf("IsReg8(IXH) = true, want false")
	}
}

func TestField8(t *testing.T) {
	cases := []struct {
		r    Reg
		want uint8
	}{
		{A, 7},
		{HLInd, 6},
		{IXH | IXFlag, uint8(H)},
		{IYL | IYFlag, uint8(L)},
	}
	for _, c := range cases {
		if got := Field8(c.r); got != c.want {
			t.Errorf("Field8(%#x) = %d, want %d", c.r, got, c.want)
		}
	}
}

func TestLookupGated(t *testing.T) {
	d := dialect.New()
	if err := d.SetMarch("z80"); err != nil {
		t.Fatalf("SetMarch: %v", err)
	}
	if _, ok := LookupGated("IXH", d); ok {
		t.Errorf("IXH resolved with no -march extension and CPU=z80, want rejected")
	}
	if err := d.SetMarch("z80+xyhl"); err != nil {
		t.Fatalf("SetMarch: %v", err)
	}
	if _, ok := LookupGated("IXH", d); !ok {
		t.Errorf("IXH not resolved under -march=z80+xyhl, want accepted")
	}

	d2 := dialect.New()
	if err := d2.SetMarch("ez80"); err != nil {
		t.Fatalf("SetMarch: %v", err)
	}
	if _, ok := LookupGated("IYL", d2); !ok {
		t.Errorf("IYL not resolved on eZ80 (always permitted), want accepted")
	}
}

func TestLookupCond(t *testing.T) {
	cases := []struct {
		name string
		want Cond
		ok   bool
	}{
		{"NZ", NZ, true},
		{"c", CY, true},
		{"age", P, true},
		{"alt", M, true},
		{"xx", 0, false},
	}
	for _, c := range cases {
		got, ok := LookupCond(c.name)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("LookupCond(%q) = (%v, %v), want (%v, %v)", c.name, got, ok, c.want, c.ok)
		}
	}
}

func TestIsJRCond(t *testing.T) {
	for _, c := range []Cond{NZ, Z, NC, CY} {
		if !IsJRCond(c) {
			t.Errorf("IsJRCond(%v) = false, want true", c)
		}
	}
	for _, c := range []Cond{PO, PE, P, M} {
		if IsJRCond(c) {
			t.Errorf("IsJRCond(%v) = true, want false", c)
		}
	}
}

func TestAllCasings(t *testing.T) {
	got := AllCasings("hl")
	if len(got) != 4 {
		t.Fatalf("AllCasings(%q) returned %d variants, want 4", "hl", len(got))
	}
	seen := map[string]bool{}
	for _, s := range got {
		seen[s] = true
	}
	for _, want := range []string{"hl", "Hl", "hL", "HL"} {
		if !seen[want] {
			t.Errorf("AllCasings(%q) missing variant %q", "hl", want)
		}
	}
}
