package colors

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestInit(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	on, off := true, false
	tests := []struct {
		name  string
		start bool
		force *bool
		want  bool
	}{
		{"force on", true, &on, true},
		{"force off", false, &off, false},
		{"nil keeps disabled", true, nil, false},
		{"nil keeps enabled", false, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			color.NoColor = tt.start
			Init(tt.force)
			if got := Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStyles(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	styles := map[string]*color.Color{
		"Bold":        Bold(),
		"Faint":       Faint(),
		"Error":       Error(),
		"Header":      Header(),
		"Fingerprint": Fingerprint(),
		"Done":        Done(),
		"Missing":     Missing(),
	}
	for name, c := range styles {
		color.NoColor = false
		if got := c.Sprint("x"); !strings.Contains(got, "\x1b[") {
			t.Errorf("%s: expected ANSI codes, got %q", name, got)
		}
		color.NoColor = true
		if got := c.Sprint("x"); got != "x" {
			t.Errorf("%s: expected plain text when disabled, got %q", name, got)
		}
	}
}
