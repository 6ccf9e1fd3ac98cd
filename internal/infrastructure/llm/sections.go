package llm

import (
	"regexp"
	"strings"
)

var markerPattern = regexp.MustCompile(`---([A-Z_]+)---`)

// parseSections splits a reply of ---NAME--- delimited blocks. Missing
// sections are simply absent from the map.
func parseSections(reply string) map[string]string {
	sections := map[string]string{}
	locs := markerPattern.FindAllStringSubmatchIndex(reply, -1)
	for i, loc := range locs {
		name := reply[loc[2]:loc[3]]
		end := len(reply)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections[name] = strings.TrimSpace(reply[loc[1]:end])
	}
	return sections
}

// splitList accepts comma separated values or one item per line.
func splitList(raw string) []string {
	raw = strings.ReplaceAll(raw, "\n", ",")
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), "-*•"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

var listPrefix = regexp.MustCompile(`^(\d+[.)]|[-*•])\s*`)

// splitLines returns non-empty lines without bullet or number prefixes.
func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = listPrefix.ReplaceAllString(strings.TrimSpace(line), "")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func splitHashtags(raw string) []string {
	var out []string
	for _, field := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	}) {
		field = strings.TrimPrefix(strings.TrimSpace(field), "#")
		if field != "" {
			out = append(out, field)
		}
	}
	return out
}
