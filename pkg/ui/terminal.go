// Package ui prints human-facing CLI output. Everything goes to stderr by
// default so stdout stays free for scrape results.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const banner = `
  ┌─┐┌─┐┌─┐┌┬┐┌─┐┌─┐┬─┐┌─┐┌─┐┌─┐┬─┐
  ├─┘│ │└─┐ │ └─┐│  ├┬┘├─┤├─┘├┤ ├┬┘
  ┴  └─┘└─┘ ┴ └─┘└─┘┴└─┴ ┴┴  └─┘┴└─
`

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	quiet   bool
	noColor bool
)

// SetOutput redirects all ui output
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

// SetNoColor disables ANSI colors
func SetNoColor(v bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = v
}

func colorize(code string) func(string) string {
	return func(text string) string {
		if noColor {
			return text
		}
		return "\033[" + code + "m" + text + "\033[0m"
	}
}

var (
	Cyan    = colorize("36")
	Yellow  = colorize("33")
	Red     = colorize("31")
	Green   = colorize("32")
	Magenta = colorize("35")
	Dim     = colorize("2")
)

func emit(always bool, format string, args ...interface{}) {
	mu.Lock()
	w, q := out, quiet
	mu.Unlock()
	if q && !always {
		return
	}
	fmt.Fprintf(w, format, args...)
}

// PrintBanner prints the program banner
func PrintBanner() {
	emit(false, "%s\n", Cyan(banner))
}

// PrintError prints msg, and detail when given, in red
func PrintError(msg string, detail ...interface{}) {
	if len(detail) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, detail[0])
	}
	emit(true, "%s\n", Red(msg))
}

func PrintSuccess(msg string) {
	emit(false, "%s\n", Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label, value string) {
	emit(false, "%s: %s\n", Cyan(label), Yellow(value))
}

func PrintWarning(msg string, detail ...interface{}) {
	if len(detail) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, detail[0])
	}
	emit(false, "%s\n", Yellow(msg))
}

// PrintHighlight prints msg as a section header
func PrintHighlight(msg string) {
	emit(false, "%s\n", Magenta(msg))
}

// Println prints plain text
func Println(text string) {
	emit(false, "%s\n", text)
}
