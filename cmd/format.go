package cmd

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// countf formats counts with locale digit grouping.
func countf(format string, args ...any) string {
	return printer.Sprintf(format, args...)
}
