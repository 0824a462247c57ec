package gamepack

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// Diagnose inspects package content for suspicious but non-fatal issues:
// empty terms, duplicate surface forms within one language, and terms whose
// detected language disagrees with the declared code. Detection only runs on
// terms long enough for the detector to be reliable.
func (p *Package) Diagnose() []Diagnostic {
	var diags []Diagnostic

	langs := make([]string, 0, len(p.ConversionTable))
	for lang := range p.ConversionTable {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	for _, lang := range langs {
		terms := p.ConversionTable[lang]

		seen := make(map[string][]int)
		for i, term := range terms {
			if strings.TrimSpace(term) == "" {
				diags = append(diags, Diagnostic{
					Language: lang,
					Index:    i,
					Message:  "empty term, will never match",
				})
				continue
			}
			seen[term] = append(seen[term], i)

			if d, ok := detectMismatch(lang, term); ok {
				diags = append(diags, Diagnostic{
					Language: lang,
					Index:    i,
					Message:  d,
				})
			}
		}

		for term, indices := range seen {
			if len(indices) > 1 {
				diags = append(diags, Diagnostic{
					Language: lang,
					Index:    indices[1],
					Message:  fmt.Sprintf("duplicate term %q (also at index %d); the lowest index wins at match time", term, indices[0]),
				})
			}
		}
	}

	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Language != diags[j].Language {
			return diags[i].Language < diags[j].Language
		}
		return diags[i].Index < diags[j].Index
	})
	return diags
}

// detectMismatch reports when a term's detected language contradicts the
// declared one. Short terms are skipped outright; detection on a few runes is
// noise.
func detectMismatch(declared, term string) (string, bool) {
	if len([]rune(term)) < 12 {
		return "", false
	}

	info := whatlanggo.Detect(term)
	if !info.IsReliable() {
		return "", false
	}

	detected := info.Lang.Iso6391()
	if detected == "" {
		return "", false
	}

	declaredBase := declared
	if tag, err := language.Parse(declared); err == nil {
		base, _ := tag.Base()
		declaredBase = base.String()
	}

	if detected != declaredBase {
		return fmt.Sprintf("term %q looks like %s, declared %s", term, info.Lang.String(), declaredBase), true
	}
	return "", false
}
