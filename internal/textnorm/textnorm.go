// Package textnorm folds free-text feedback into the canonical form every scorer and
// the statistical model work on.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenRunes is the shortest token the vectorizer keeps.
const minTokenRunes = 2

var decimalDigits = runes.In(unicode.Nd)

// isWordRune matches letters, marks, numbers and connector punctuation such as '_'.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r) || unicode.Is(unicode.Pc, r)
}

// foldRune lowercases word runes and turns everything else into a space. Digits must
// already be gone: runes.Map cannot drop a rune.
func foldRune(r rune) rune {
	if isWordRune(r) {
		return unicode.ToLower(r)
	}
	return ' '
}

func newFolder() transform.Transformer {
	return transform.Chain(norm.NFC, runes.Remove(decimalDigits), runes.Map(foldRune), norm.NFC)
}

// Normalize lowercases text, replaces non-word characters with spaces, removes digits
// (without inserting a space), collapses whitespace and trims. Composed and decomposed
// accents produce the same output. Normalize is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	folded, _, err := transform.String(newFolder(), text)
	if err != nil {
		// Invalid UTF-8 cannot fail the caller; fall back to a rune-by-rune fold.
		folded = strings.Map(func(r rune) rune {
			if decimalDigits.Contains(r) {
				return -1
			}
			return foldRune(r)
		}, strings.ToValidUTF8(text, " "))
	}

	return strings.Join(strings.Fields(folded), " ")
}

// Tokens splits already normalized text into vectorizer tokens: words of at least two
// runes.
func Tokens(normalized string) []string {
	fields := strings.Fields(normalized)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenRunes {
			out = append(out, f)
		}
	}
	return out
}
