package diag

import "testing"

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Severity: Error, Message: "bad operand", Line: 7}
	if got, want := d.String(), "error:7: bad operand"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	w := Diagnostic{Severity: Warning, Message: "undocumented", Line: 3}
	if got, want := w.String(), "warning:3: undocumented"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestWarnAlwaysAccumulates(t *testing.T) {
	var s Sink
	s.StartLine(1)
	s.Warn("first")
	s.Warn("second")
	if len(s.All) != 2 {
		t.Fatalf("len(All) = %d, want 2", len(s.All))
	}
	if s.HasError() {
		t.Errorf("HasError() = true after only warnings, want false")
	}
}

func TestErrorDebouncesWithinLine(t *testing.T) {
	var s Sink
	s.StartLine(1)
	s.Error("bad operand")
	s.Error("junk at end of line")
	if len(s.All) != 1 {
		t.Fatalf("len(All) = %d, want 1 (second error on same line suppressed)", len(s.All))
	}
	if !s.HasError() {
		t.Errorf("HasError() = false after Error, want true")
	}
}

func TestStartLineResetsDebounce(t *testing.T) {
	var s Sink
	s.StartLine(1)
	s.Error("bad operand")
	s.StartLine(2)
	if s.HasError() {
		t.Errorf("HasError() = true after StartLine on a new line, want false")
	}
	s.Error("another error")
	if len(s.All) != 2 {
		t.Fatalf("len(All) = %d, want 2 (one per line)", len(s.All))
	}
}

func TestErrorCount(t *testing.T) {
	var s Sink
	s.StartLine(1)
	s.Warn("warning one")
	s.Error("error one")
	s.StartLine(2)
	s.Error("error two")
	if got := s.ErrorCount(); got != 2 {
		t.Errorf("ErrorCount() = %d, want 2", got)
	}
}
