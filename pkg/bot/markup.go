package bot

import (
	"regexp"
	"strings"
)

const descriptionLimit = 1000

var (
	spoilerTagRe  = regexp.MustCompile(`(?i)\[/?spoiler]`)
	exampleLinkRe = regexp.MustCompile(`(?i)\[url=.*?\](?:NSFW\s)?Example\s?\d*\[/url\]`)
	bbcodeTagRe   = regexp.MustCompile(`(?i)\[/?[a-z][^\[\]]*\]`)
	sourceNoteRe  = regexp.MustCompile(`(?i)\[[^\[\]]*from[^\[\]]*]`)
	blankRunRe    = regexp.MustCompile(`\n\s*\n`)
)

// cleanDescription turns the API's bbcode-flavored rich text into Discord
// plaintext: spoiler tags become || markers, decorative markup is
// stripped, and the result is capped at 1000 characters with the spoiler
// markers kept paired.
func cleanDescription(description string) string {
	description = spoilerTagRe.ReplaceAllString(description, "||")
	description = exampleLinkRe.ReplaceAllString(description, "")
	description = sourceNoteRe.ReplaceAllString(description, "")
	description = bbcodeTagRe.ReplaceAllString(description, "")
	description = strings.TrimRight(description, " \n\t")

	if r := []rune(description); len(r) > descriptionLimit {
		description = string(r[:descriptionLimit]) + "..."
	}
	if strings.Count(description, "||")%2 == 1 {
		description += "||"
	}

	return blankRunRe.ReplaceAllString(description, "\n\n")
}

// capList joins already-rendered list entries with commas and cuts the
// result back to the last whole entry under the embed limit. The second
// return reports whether anything was dropped.
func capList(parts []string) (string, bool) {
	s := strings.Join(parts, ", ")
	if len(s) <= descriptionLimit {
		return s, false
	}

	cut := s[:descriptionLimit]
	if i := strings.LastIndex(cut, ", "); i >= 0 {
		cut = cut[:i]
	}
	cut += ", ..."
	if strings.Count(cut, "||")%2 == 1 {
		cut += "||"
	}
	return cut, true
}
