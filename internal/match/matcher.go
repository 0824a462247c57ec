// Package match locates term occurrences in plain text. Longer terms win
// over shorter ones, earlier-discovered terms win among equals, and accepted
// spans never overlap.
package match

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/termlens/termlens/internal/termtable"
)

// Match is one located occurrence of a source-language term. Start and End
// are byte offsets into the scanned string, Start < End. Matches are
// ephemeral: they describe one input string and are never persisted.
type Match struct {
	SourceLang string
	Term       termtable.Term
	Start      int
	End        int
}

// Options control how occurrences are accepted.
type Options struct {
	// CaseSensitive disables case folding during the scan.
	CaseSensitive bool
	// WholeWord rejects occurrences glued to adjacent word runes, e.g. "elf"
	// inside "herself". Scripts without word delimiters (Han, kana, Hangul)
	// are exempt on the affected edge.
	WholeWord bool
}

// candidate is one term queued for a scan, tagged with the language it came
// from and its pre-computed rune length.
type candidate struct {
	lang  string
	term  termtable.Term
	runes int
}

// Find scans text for occurrences of every source-language term in the
// table. Terms are visited longest first across all source languages, so a
// long term always beats a shorter overlapping one no matter which language
// holds it; among equal lengths the table's language order, then per-language
// table position, decide. An occurrence is accepted only when its span does
// not overlap an already accepted one. Terms with no target-language
// counterpart at the same index never match. The result is sorted by start
// offset.
func Find(text string, table *termtable.Table, opts Options) []Match {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var candidates []candidate
	for _, lang := range table.SourceLanguages() {
		for _, term := range table.TermsFor(lang) {
			if term.Text == "" {
				continue
			}
			if _, ok := table.TargetTerm(term.Index); !ok {
				continue
			}
			candidates = append(candidates, candidate{
				lang:  lang,
				term:  term,
				runes: utf8.RuneCountInString(term.Text),
			})
		}
	}
	// The per-language lists are already longest first. The stable re-sort
	// merges them into one global order without disturbing the tie-break:
	// equal-length terms keep language order, then table order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].runes > candidates[j].runes
	})

	var accepted []Match
	for _, c := range candidates {
		accepted = appendOccurrences(accepted, text, c.lang, c.term, opts)
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}

// appendOccurrences scans text for every occurrence of one term and appends
// those that pass the overlap and word-boundary checks.
func appendOccurrences(accepted []Match, text, lang string, term termtable.Term, opts Options) []Match {
	from := 0
	for from < len(text) {
		start, end := indexTerm(text, term.Text, from, opts.CaseSensitive)
		if start < 0 {
			break
		}

		switch {
		case overlaps(accepted, start, end):
			// A longer or earlier term already owns part of this span.
		case opts.WholeWord && !onWordBoundary(text, start, end):
		default:
			accepted = append(accepted, Match{
				SourceLang: lang,
				Term:       term,
				Start:      start,
				End:        end,
			})
		}

		// Resume after the occurrence's first rune so overlapping repeats of
		// the same term are still seen.
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return accepted
}

// indexTerm finds the next occurrence of term in text at or after from and
// returns its byte span, or (-1, -1). The case-insensitive path compares rune
// by rune under simple case folding, so spans stay correct for characters
// whose lowercase form has a different byte length.
func indexTerm(text, term string, from int, caseSensitive bool) (int, int) {
	if caseSensitive {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return -1, -1
		}
		return from + i, from + i + len(term)
	}

	for i := from; i < len(text); {
		if end, ok := foldMatchAt(text, term, i); ok {
			return i, end
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return -1, -1
}

// foldMatchAt reports whether term matches text at byte offset at, ignoring
// case, and returns the end offset of the matched span.
func foldMatchAt(text, term string, at int) (int, bool) {
	i := at
	for _, tr := range term {
		if i >= len(text) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(text[i:])
		if !foldEqual(sr, tr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

func foldEqual(a, b rune) bool {
	if a == b {
		return true
	}
	return unicode.ToLower(a) == unicode.ToLower(b)
}

// overlaps reports whether [start, end) intersects any accepted span.
func overlaps(accepted []Match, start, end int) bool {
	for _, m := range accepted {
		if start < m.End && m.Start < end {
			return true
		}
	}
	return false
}

// onWordBoundary reports whether the span is not glued to surrounding word
// runes. An edge is only checked when the matched text's own edge rune is a
// delimited-script word rune; CJK and Hangul text carries no delimiters, so
// those edges always pass.
func onWordBoundary(text string, start, end int) bool {
	first, _ := utf8.DecodeRuneInString(text[start:])
	last, _ := utf8.DecodeLastRuneInString(text[:end])

	if isDelimitedWordRune(first) && start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:start])
		if isDelimitedWordRune(prev) {
			return false
		}
	}
	if isDelimitedWordRune(last) && end < len(text) {
		next, _ := utf8.DecodeRuneInString(text[end:])
		if isDelimitedWordRune(next) {
			return false
		}
	}
	return true
}

// isDelimitedWordRune reports whether r is a word-forming rune of a script
// that separates words with delimiters.
func isDelimitedWordRune(r rune) bool {
	if r == '_' {
		return true
	}
	if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return false
	}
	if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
		return false
	}
	return true
}
