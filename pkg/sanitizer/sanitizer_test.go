package sanitizer

import "testing"

func TestSanitizeFreeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  persistent headache  ", "persistent headache"},
		{"collapses spaces", "back    pain\tsince   monday", "back pain since monday"},
		{"strips control chars", "chest\x00 pain\x1b", "chest pain"},
		{"collapses blank lines", "line one\n\n\n\n\nline two", "line one\n\nline two"},
		{"empty stays empty", "", ""},
		{"only whitespace", " \t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFreeText(tt.input); got != tt.want {
				t.Errorf("SanitizeFreeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPipelineOrder(t *testing.T) {
	upper := func(s string) string { return s + "a" }
	double := func(s string) string { return s + s }
	p := Pipeline{upper, double}

	if got := p.Apply("x"); got != "xaxa" {
		t.Errorf("Pipeline.Apply = %q, want %q", got, "xaxa")
	}
}
