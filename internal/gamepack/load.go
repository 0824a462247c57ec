package gamepack

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/text/language"
)

// ValidationError marks a package that failed schema validation. The previous
// package, if any, stays active when a load fails with this error.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid game package: " + e.Reason
}

func invalid(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Decode parses a game package from raw JSON and validates it. No partial
// result is ever returned.
func Decode(data []byte) (*Package, error) {
	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, invalid("malformed JSON: %v", err)
	}
	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// Load reads and decodes a game package file.
func Load(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game package: %w", err)
	}
	return Decode(data)
}

// Validate checks the schema invariants: a non-empty conversion table, one
// shared vocabulary length across all languages, definition tables no longer
// than their term tables, and parseable language codes with distinct base
// codes.
func (p *Package) Validate() error {
	if len(p.ConversionTable) == 0 {
		return invalid("conversionTable is required")
	}

	vocabSize := -1
	bases := make(map[string]string, len(p.ConversionTable))
	for lang, terms := range p.ConversionTable {
		tag, err := language.Parse(lang)
		if err != nil {
			return invalid("unknown language code %q", lang)
		}
		// Region subtags are dropped at lookup time, so "en" and "en-US" would
		// silently shadow each other's vocabulary.
		base, _ := tag.Base()
		if prev, dup := bases[base.String()]; dup {
			return invalid("conversionTable languages %q and %q both normalize to %q", prev, lang, base)
		}
		bases[base.String()] = lang
		if vocabSize == -1 {
			vocabSize = len(terms)
			continue
		}
		if len(terms) != vocabSize {
			return invalid("conversionTable languages disagree on vocabulary size: %q has %d terms, expected %d",
				lang, len(terms), vocabSize)
		}
	}

	for lang, defs := range p.DefinitionTable {
		terms, ok := p.ConversionTable[lang]
		if !ok {
			return invalid("definitionTable language %q has no conversionTable entry", lang)
		}
		if len(defs) > len(terms) {
			return invalid("definitionTable for %q has %d entries, more than the %d terms",
				lang, len(defs), len(terms))
		}
	}

	return nil
}
