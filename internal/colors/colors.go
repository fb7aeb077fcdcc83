// Package colors provides the terminal styles of the CLI output.
//
// Colors are automatically disabled when stdout is not a terminal (piped or
// redirected to a file). Use Init() to override based on CLI flags.
package colors

import "github.com/fatih/color"

// Init allows overriding the auto-detected color setting.
//   - forceColor == nil: keep auto-detected value
//   - forceColor == true: force colors on (--color)
//   - forceColor == false: force colors off (--color=false)
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Enabled returns true if colors are currently enabled.
func Enabled() bool {
	return !color.NoColor
}

func Bold() *color.Color  { return color.New(color.Bold) }
func Faint() *color.Color { return color.New(color.Faint) }

// Error is used for the fatal error summary.
func Error() *color.Color { return color.New(color.Bold, color.FgRed) }

// Header is used for table headers and tool names.
func Header() *color.Color { return color.New(color.Bold, color.FgHiBlue) }

// Fingerprint is used for work directory names.
func Fingerprint() *color.Color { return color.New(color.FgHiMagenta) }

// Done marks complete cache entries and installed tools.
func Done() *color.Color { return color.New(color.FgGreen) }

// Missing marks incomplete cache entries and missing tools.
func Missing() *color.Color { return color.New(color.FgYellow) }
