package extract

import (
	"regexp"
	"strings"
)

var (
	fencedJSON = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	braceSpan  = regexp.MustCompile(`\{[\s\S]*\}`)
)

// JSONBlock isolates the JSON document in a model response: a fenced code
// block if present, else the outermost brace span, else the trimmed text.
func JSONBlock(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil && strings.Contains(m[1], "{") {
		return m[1]
	}
	if m := braceSpan.FindString(text); m != "" {
		return m
	}
	return strings.TrimSpace(text)
}
