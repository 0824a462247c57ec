package gamepack

// Package is a user-supplied game package: vocabulary tables for one game,
// index-aligned across languages, plus matching settings.
//
// The JSON layout is fixed; files produced by community tooling are consumed
// as-is:
//
//	{
//	  "metadata":        {"name": ..., "version": ..., "languages": [...]},
//	  "conversionTable": {"en": ["Fire Staff", ...], "ja": ["炎の杖", ...]},
//	  "definitionTable": {"en": ["A staff imbued with fire.", null, ...]},
//	  "settings":        {"caseSensitive": false, "enablePartialMatch": true, "tooltipDelay": 300}
//	}
type Package struct {
	Metadata        Metadata             `json:"metadata"`
	ConversionTable map[string][]string  `json:"conversionTable"`
	DefinitionTable map[string][]*string `json:"definitionTable,omitempty"`
	Settings        Settings             `json:"settings"`
}

// Metadata describes the package itself, not its content.
type Metadata struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Languages []string `json:"languages"`
}

// Settings are matching options shipped inside the package.
type Settings struct {
	CaseSensitive      bool    `json:"caseSensitive"`
	EnablePartialMatch bool    `json:"enablePartialMatch"`
	TooltipDelay       float64 `json:"tooltipDelay"`
}

// Diagnostic is a non-fatal finding about package content. Diagnostics never
// block a load; they are surfaced so package authors can fix their data.
type Diagnostic struct {
	Language string
	Index    int
	Message  string
}
