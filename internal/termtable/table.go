// Package termtable holds the normalized, queryable view over a game
// package's per-language term and definition arrays. A Table is rebuilt
// wholesale on every package load and never mutated afterwards, so callers
// may share one instance freely.
package termtable

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Term is one vocabulary entry of one language. Index is the shared position
// across all languages: entry Index in any language translates entry Index in
// every other language.
type Term struct {
	Text  string
	Index int
}

// Table is the immutable, queryable term table for one target language.
type Table struct {
	target      string
	sourceLangs []string
	terms       map[string][]Term
	targetTerms []string
	definitions map[string]map[int]string
	vocabSize   int
}

// Load builds a Table from raw per-language arrays.
//
// conversion holds index-aligned term arrays; definitions holds optional,
// index-aligned glosses (nil entries mean "no definition"). langOrder fixes
// the iteration order of source languages for matching; languages absent from
// it are appended in sorted order. All source-language arrays must share one
// length. The target-language array may be shorter: indices past its end have
// no translation and are skipped at match time.
func Load(
	conversion map[string][]string,
	definitions map[string][]*string,
	targetLang string,
	langOrder []string,
) (*Table, error) {
	target, err := normalizeLang(targetLang)
	if err != nil {
		return nil, fmt.Errorf("invalid target language %q: %w", targetLang, err)
	}

	normalized := make(map[string][]string, len(conversion))
	given := make(map[string]string, len(conversion))
	for lang, terms := range conversion {
		code, err := normalizeLang(lang)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", lang, err)
		}
		// Two inputs collapsing onto one base code would drop a vocabulary
		// wholesale; refuse instead.
		if prev, dup := given[code]; dup {
			return nil, fmt.Errorf("languages %q and %q both normalize to %q", prev, lang, code)
		}
		given[code] = lang
		normalized[code] = terms
	}

	sourceLangs := orderedSources(normalized, target, langOrder)
	if len(sourceLangs) == 0 {
		return nil, fmt.Errorf("no source language: every table language matches target %q", target)
	}

	vocabSize := -1
	for _, lang := range sourceLangs {
		n := len(normalized[lang])
		if vocabSize == -1 {
			vocabSize = n
			continue
		}
		if n != vocabSize {
			return nil, fmt.Errorf("source language %q has %d terms, expected %d", lang, n, vocabSize)
		}
	}

	t := &Table{
		target:      target,
		sourceLangs: sourceLangs,
		terms:       make(map[string][]Term, len(sourceLangs)),
		targetTerms: normalized[target],
		definitions: make(map[string]map[int]string),
		vocabSize:   vocabSize,
	}

	for _, lang := range sourceLangs {
		terms := make([]Term, 0, vocabSize)
		for i, text := range normalized[lang] {
			terms = append(terms, Term{Text: text, Index: i})
		}
		// Longest first, computed once at load time. Stable, so equal-length
		// terms keep table order: that order is the documented tie-break.
		sort.SliceStable(terms, func(a, b int) bool {
			return utf8.RuneCountInString(terms[a].Text) > utf8.RuneCountInString(terms[b].Text)
		})
		t.terms[lang] = terms
	}

	givenDefs := make(map[string]string, len(definitions))
	for lang, defs := range definitions {
		code, err := normalizeLang(lang)
		if err != nil {
			return nil, fmt.Errorf("invalid definition language %q: %w", lang, err)
		}
		if prev, dup := givenDefs[code]; dup {
			return nil, fmt.Errorf("definition languages %q and %q both normalize to %q", prev, lang, code)
		}
		givenDefs[code] = lang
		byIndex := make(map[int]string)
		for i, def := range defs {
			if def == nil || *def == "" {
				continue
			}
			byIndex[i] = *def
		}
		if len(byIndex) > 0 {
			t.definitions[code] = byIndex
		}
	}

	return t, nil
}

// TargetLanguage returns the normalized target language code.
func (t *Table) TargetLanguage() string {
	return t.target
}

// SourceLanguages returns the source languages in their fixed iteration
// order, target excluded. The returned slice is shared; callers must not
// modify it.
func (t *Table) SourceLanguages() []string {
	return t.sourceLangs
}

// TermsFor returns the language's terms sorted by descending text length, or
// nil for an unknown language.
func (t *Table) TermsFor(lang string) []Term {
	return t.terms[lang]
}

// TargetTerm returns the target-language term at the shared index. ok is
// false when the target table has no entry there — the caller must skip the
// match, there is nothing to substitute.
func (t *Table) TargetTerm(index int) (string, bool) {
	if index < 0 || index >= len(t.targetTerms) {
		return "", false
	}
	return t.targetTerms[index], true
}

// Definition returns the gloss shown on hover for the shared index: the
// target-language definition when present, otherwise the source-language one.
func (t *Table) Definition(sourceLang string, index int) (string, bool) {
	if def, ok := t.definitions[t.target][index]; ok {
		return def, true
	}
	if def, ok := t.definitions[sourceLang][index]; ok {
		return def, true
	}
	return "", false
}

// VocabSize is the shared vocabulary length N of the source languages.
func (t *Table) VocabSize() int {
	return t.vocabSize
}

// normalizeLang reduces a language string to its 2-letter base code, so
// "en-US" in a package matches a "en" target setting.
func normalizeLang(lang string) (string, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return "", err
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// orderedSources fixes the source-language iteration order: langOrder first
// (as given), then any remaining table languages sorted. The target language
// is excluded wherever it appears.
func orderedSources(conversion map[string][]string, target string, langOrder []string) []string {
	seen := make(map[string]bool, len(conversion))
	var ordered []string

	for _, lang := range langOrder {
		code, err := normalizeLang(lang)
		if err != nil {
			continue
		}
		if code == target || seen[code] {
			continue
		}
		if _, ok := conversion[code]; !ok {
			continue
		}
		seen[code] = true
		ordered = append(ordered, code)
	}

	var rest []string
	for lang := range conversion {
		if lang == target || seen[lang] {
			continue
		}
		rest = append(rest, lang)
	}
	sort.Strings(rest)
	return append(ordered, rest...)
}
