package feed

import "strings"

var linkReplacer = strings.NewReplacer("<", "", ">", "", "\n", "", "\t", "", "\r", "")

// Sanitize strips angle brackets, newlines, tabs and carriage returns from a link.
func Sanitize(link string) string {
	return linkReplacer.Replace(link)
}
