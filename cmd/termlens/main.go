// The termlens command applies a game package to static HTML files and
// validates package files. The same engine drives live-document overlays;
// here it runs once per file and writes the rewritten tree back out.
//
// Usage:
//
//	termlens validate -package pack.json
//	termlens apply -package pack.json -target en page.html > out.html
//	termlens apply -package pack.json -target en -out dir/ a.html b.html
//
// When -package is omitted, apply falls back to the gamePackage and
// targetLang entries of the settings file (SETTINGS_FILE env).
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/termlens/termlens/internal/config"
	"github.com/termlens/termlens/internal/domscan"
	"github.com/termlens/termlens/internal/gamepack"
	"github.com/termlens/termlens/internal/match"
	"github.com/termlens/termlens/internal/settings"
	"github.com/termlens/termlens/internal/termtable"
	"github.com/termlens/termlens/pkg/log"
)

func main() {
	// A missing .env is fine; explicit environment wins anyway.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(os.Args[2:])
	case "apply":
		err = runApply(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("%v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `termlens - overlay translated game terms onto HTML text

Usage:
  termlens validate -package <pack.json>
      Validate a game package and print content diagnostics.

  termlens apply [-package <pack.json>] [-target <lang>] [-out <dir>] <file.html>...
      Rewrite known terms in the given HTML files. A single input file with
      no -out prints to stdout; otherwise files are written into -out.`)
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	pkgPath := fs.String("package", "", "game package JSON file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pkgPath == "" {
		return fmt.Errorf("validate: -package is required")
	}

	pkg, err := gamepack.Load(*pkgPath)
	if err != nil {
		return err
	}

	fmt.Printf("package %q (version %s): %d language(s), %d term(s) per language\n",
		pkg.Metadata.Name, pkg.Metadata.Version,
		len(pkg.ConversionTable), vocabSize(pkg))

	diags := pkg.Diagnose()
	for _, d := range diags {
		fmt.Printf("  warning: [%s:%d] %s\n", d.Language, d.Index, d.Message)
	}
	if len(diags) == 0 {
		fmt.Println("  no content warnings")
	}
	return nil
}

func runApply(args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	pkgPath := fs.String("package", "", "game package JSON file (default: settings file)")
	target := fs.String("target", "", "target language (default: TARGET_LANG)")
	outDir := fs.String("out", "", "output directory (default: stdout for one file)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		return fmt.Errorf("apply: no input files")
	}
	if len(files) > 1 && *outDir == "" {
		return fmt.Errorf("apply: -out is required for multiple input files")
	}

	cfg, err := config.NewFromEnv(
		config.WithPackageFile(*pkgPath),
		config.WithTargetLang(*target),
	)
	if err != nil {
		return err
	}

	pkg, targetLang, err := resolvePackage(cfg)
	if err != nil {
		return err
	}

	table, err := termtable.FromPackage(pkg, targetLang)
	if err != nil {
		return err
	}
	opts := match.Options{
		CaseSensitive: pkg.Settings.CaseSensitive,
		WholeWord:     !pkg.Settings.EnablePartialMatch,
	}

	g := new(errgroup.Group)
	g.SetLimit(cfg.ApplyConcurrency)
	for _, file := range files {
		file := file
		g.Go(func() error {
			return applyFile(file, *outDir, table, opts)
		})
	}
	return g.Wait()
}

// resolvePackage loads the package named on the command line, or falls back
// to the settings document the live overlay would use.
func resolvePackage(cfg *config.Config) (*gamepack.Package, string, error) {
	if cfg.PackageFile != "" {
		pkg, err := gamepack.Load(cfg.PackageFile)
		return pkg, cfg.TargetLang, err
	}

	provider, err := settings.NewFileProvider(cfg.SettingsFile)
	if err != nil {
		return nil, "", err
	}
	values, err := provider.Get(context.Background(),
		settings.KeyGamePackage, settings.KeyTargetLang)
	if err != nil {
		return nil, "", err
	}

	raw, ok := values[settings.KeyGamePackage]
	if !ok {
		return nil, "", fmt.Errorf("no -package given and %s has no gamePackage", cfg.SettingsFile)
	}
	pkg, err := gamepack.Decode(raw)
	if err != nil {
		return nil, "", err
	}
	return pkg, settings.String(values, settings.KeyTargetLang, cfg.TargetLang), nil
}

func applyFile(path, outDir string, table *termtable.Table, opts match.Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	scanner := domscan.NewScanner(table, opts)
	stats := scanner.ScanSubtree(doc)
	log.Info("%s: %d occurrence(s) in %d text node(s)", path, stats.Occurrences, stats.TextNodes)
	if stats.Failures > 0 {
		log.Warn("%s: %d subtree(s) skipped after scan errors", path, stats.Failures)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}

	if outDir == "" {
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	outPath := filepath.Join(outDir, filepath.Base(path))
	return os.WriteFile(outPath, buf.Bytes(), 0o644)
}

func vocabSize(pkg *gamepack.Package) int {
	for _, terms := range pkg.ConversionTable {
		return len(terms)
	}
	return 0
}
