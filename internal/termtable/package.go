package termtable

import "github.com/termlens/termlens/internal/gamepack"

// FromPackage builds the Table for a loaded game package. Source-language
// iteration order follows the package's metadata.languages declaration.
func FromPackage(pkg *gamepack.Package, targetLang string) (*Table, error) {
	return Load(pkg.ConversionTable, pkg.DefinitionTable, targetLang, pkg.Metadata.Languages)
}
