// Package rewrite turns a matched string into an ordered fragment list:
// verbatim text between matches, translated terms where matches were found,
// with per-occurrence metadata carried structurally alongside.
package rewrite

import (
	"strings"

	"github.com/termlens/termlens/internal/match"
	"github.com/termlens/termlens/internal/termtable"
)

// Occurrence is one replaced term instance with everything a hover tooltip
// needs attached.
type Occurrence struct {
	SourceLang string
	SourceText string // original matched substring, kept for lossless revert
	Translated string
	Definition string // empty when neither language defines the term
	HasDef     bool
	Index      int // shared vocabulary index
	Start, End int // span in the input text
}

// Fragment is one output piece. Occurrence is nil for verbatim gaps.
type Fragment struct {
	Text       string
	Occurrence *Occurrence
}

// Result is the rewritten form of one input string.
type Result struct {
	Fragments   []Fragment
	Occurrences []Occurrence
}

// Changed reports whether the input was altered at all. Callers must leave
// the original untouched when this is false.
func (r Result) Changed() bool {
	return len(r.Occurrences) > 0
}

// Text concatenates all fragments into the rewritten string.
func (r Result) Text() string {
	var b strings.Builder
	for _, f := range r.Fragments {
		b.WriteString(f.Text)
	}
	return b.String()
}

// Apply substitutes each match with its target-language term in one
// left-to-right pass. matches must be sorted by start offset and
// non-overlapping, as produced by match.Find. Text outside the matched spans
// is copied verbatim; the replacement itself is inserted as-is, with no case
// transformation. Matches without a target-language term are emitted
// verbatim. Apply never fails, whatever the input contains.
func Apply(text string, matches []match.Match, table *termtable.Table) Result {
	if len(matches) == 0 {
		return Result{Fragments: []Fragment{{Text: text}}}
	}

	var result Result
	pos := 0
	for _, m := range matches {
		translated, ok := table.TargetTerm(m.Term.Index)
		if !ok {
			// No translation at this index; keep the original text.
			continue
		}

		if m.Start > pos {
			result.Fragments = append(result.Fragments, Fragment{Text: text[pos:m.Start]})
		}

		occ := &Occurrence{
			SourceLang: m.SourceLang,
			SourceText: text[m.Start:m.End],
			Translated: translated,
			Index:      m.Term.Index,
			Start:      m.Start,
			End:        m.End,
		}
		if def, ok := table.Definition(m.SourceLang, m.Term.Index); ok {
			occ.Definition = def
			occ.HasDef = true
		}

		result.Occurrences = append(result.Occurrences, *occ)
		result.Fragments = append(result.Fragments, Fragment{
			Text:       translated,
			Occurrence: occ,
		})
		pos = m.End
	}

	if pos < len(text) {
		result.Fragments = append(result.Fragments, Fragment{Text: text[pos:]})
	}
	if len(result.Occurrences) == 0 {
		return Result{Fragments: []Fragment{{Text: text}}}
	}
	return result
}
