// Package printer renders human-facing CLI output: coloured status lines and
// structured error explanations for governance failures.
package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dyluth/folio/pkg/site"
	"github.com/fatih/color"
)

func init() {
	// NO_COLOR disables colour even on a TTY
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

// Destinations for normal and error output. Tests swap them for buffers.
var (
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr
)

// SetOutput redirects Out and Err and returns a function restoring the previous writers.
func SetOutput(out, errOut io.Writer) (restore func()) {
	prevOut, prevErr := Out, Err
	Out, Err = out, errOut
	return func() { Out, Err = prevOut, prevErr }
}

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(Out, msg)
}

// Info prints an informational message in the default colour
func Info(format string, a ...any) {
	fmt.Fprintf(Out, format, a...)
}

// Warning prints a warning message in yellow with a warning prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(Out, msg)
}

// Step prints a step of a multi-step operation
func Step(format string, a ...any) {
	cyan.Fprintf(Out, "→ %s", fmt.Sprintf(format, a...))
}

// Println prints a plain line
func Println(a ...any) {
	fmt.Fprintln(Out, a...)
}

// Printf prints a plain formatted message
func Printf(format string, a ...any) {
	fmt.Fprintf(Out, format, a...)
}

// Tier renders a tier name in the colour used across folio output: individual
// overrides cyan, journal yellow, global bold.
func Tier(t site.Tier) string {
	switch t {
	case site.TierIndividual:
		return cyan.Sprint(string(t))
	case site.TierJournal:
		return yellow.Sprint(string(t))
	case site.TierGlobal:
		return bold.Sprint(string(t))
	default:
		return string(t)
	}
}

// Error prints a formatted error (title, explanation, suggestions) to Err and
// returns a bare error carrying the title for Cobra, which runs with SilenceErrors.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with a block of key/value details, printed sorted by key.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(Err, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(Err, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(Err, "\n")
		for _, k := range keys {
			fmt.Fprintf(Err, "  %s: %s\n", k, context[k])
		}
	}

	printSuggestions(suggestions)

	return fmt.Errorf("%s", title)
}

func printSuggestions(suggestions []string) {
	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(Err, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(Err, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(Err, "  %d. %s\n", i+1, s)
		}
	}
}

// EngineError explains the typed errors of the template engine with context and
// a next step. Other errors are reported under the fallback title.
func EngineError(fallback string, err error) error {
	switch {
	case site.IsNotFound(err):
		return Error("Not found", err.Error(), []string{
			"Run 'folio templates' to list registered templates",
		})
	case site.IsCyclicInheritance(err):
		return Error("Cyclic template inheritance", err.Error(), []string{
			"Change inherits_from so no template is its own ancestor",
		})
	case site.IsInvalidScope(err):
		return Error("Invalid scope", err.Error(), []string{
			"Routes look like journal/<code> or journal/<code>/issue/<id>",
			"Promotion only moves content one tier outward (individual → journal → global)",
		})
	default:
		return Error(fallback, err.Error(), nil)
	}
}
