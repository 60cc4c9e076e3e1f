package markdown

import "unicode"

// CharactersPerMinute is the reading speed used by Count.
const CharactersPerMinute = 200

// Stats summarises an article body.
type Stats struct {
	Characters     int `json:"characters"`
	ReadingMinutes int `json:"reading_minutes"`
}

// Count reports non-whitespace characters and the estimated reading time,
// rounded up to whole minutes. Counting characters rather than words keeps
// CJK text meaningful.
func Count(body string) Stats {
	n := 0
	for _, r := range body {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return Stats{
		Characters:     n,
		ReadingMinutes: (n + CharactersPerMinute - 1) / CharactersPerMinute,
	}
}
