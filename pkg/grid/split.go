package grid

import (
	"log/slog"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuationOrSpace = runes.Predicate(func(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r)
})

// SplitFragments splits every fragment into letters. Fragments with nothing
// left after filtering are skipped.
func SplitFragments(fragments []Fragment) []ObservedLetter {
	var letters []ObservedLetter
	for _, fragment := range fragments {
		split := SplitFragment(fragment)
		if len(split) == 0 {
			slog.Debug("Skipping fragment without letters", "text", fragment.Text)
			continue
		}
		letters = append(letters, split...)
	}
	return letters
}

// SplitFragment turns a detection into one ObservedLetter per grapheme.
//
// Punctuation and whitespace are removed first. A single remaining grapheme
// keeps the fragment's box; longer text slices the box into equal-width
// columns from left to right, assuming monospaced tile lettering.
func SplitFragment(fragment Fragment) []ObservedLetter {
	chars := graphemes(filteredText(fragment.Text))

	switch len(chars) {
	case 0:
		return nil
	case 1:
		return []ObservedLetter{{Character: chars[0], BoundingBox: fragment.BoundingBox}}
	}

	box := fragment.BoundingBox
	letterWidth := box.Width / float64(len(chars))

	letters := make([]ObservedLetter, 0, len(chars))
	for i, char := range chars {
		letters = append(letters, ObservedLetter{
			Character: char,
			BoundingBox: BoundingBox{
				X:      box.X + float64(i)*letterWidth,
				Y:      box.Y,
				Width:  letterWidth,
				Height: box.Height,
			},
		})
	}
	return letters
}

// filteredText NFC-normalizes text and strips punctuation and whitespace
func filteredText(text string) string {
	// transformers carry state, so build a fresh chain for every call
	t := transform.Chain(norm.NFC, runes.Remove(punctuationOrSpace))
	out, _, err := transform.String(t, text)
	if err != nil {
		slog.Debug("Unable to normalize fragment text", "text", text, "err", err)
		return ""
	}
	return out
}

func graphemes(s string) []string {
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}
