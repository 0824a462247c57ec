// Package domscan walks an HTML tree, rewrites term occurrences in its text
// nodes, and keeps enough bookkeeping to revert everything losslessly.
package domscan

import (
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/termlens/termlens/internal/match"
	"github.com/termlens/termlens/internal/rewrite"
	"github.com/termlens/termlens/internal/termtable"
	"github.com/termlens/termlens/pkg/log"
)

// WrapperClass marks the inline elements the scanner inserts. Subtrees under
// such an element are never scanned again.
const WrapperClass = "termlens-term"

// Data attributes carried by every wrapper element. The tooltip layer reads
// these; nothing in this package ever parses them back.
const (
	AttrSource     = "data-termlens-source"
	AttrLang       = "data-termlens-lang"
	AttrIndex      = "data-termlens-index"
	AttrDefinition = "data-termlens-definition"
)

// Stats summarizes one ScanSubtree pass.
type Stats struct {
	TextNodes   int // eligible text nodes visited
	Rewritten   int // text nodes actually replaced
	Occurrences int // term occurrences wrapped
	Failures    int // subtrees abandoned after a scan panic
}

// Scanner rewrites term occurrences inside a live HTML tree. All bookkeeping
// is keyed by node identity and released on Revert or Forget, so detached
// subtrees do not pile up.
type Scanner struct {
	logger *log.Logger

	mu        sync.Mutex
	table     *termtable.Table
	opts      match.Options
	processed map[*html.Node]struct{}
	records   []*rewriteRecord
}

// rewriteRecord remembers one replaced text node. Structural replacement is
// lossy, so the original text is kept here; without it revert could not
// restore the page.
type rewriteRecord struct {
	parent   *html.Node
	inserted []*html.Node
	original string
}

type Option func(*Scanner)

func WithLogger(logger *log.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

func NewScanner(table *termtable.Table, opts match.Options, options ...Option) *Scanner {
	s := &Scanner{
		logger:    log.GetLogger(),
		table:     table,
		opts:      opts,
		processed: make(map[*html.Node]struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// SetTable swaps in a new term table and options. The table is replaced as a
// whole; a scan already under way on another goroutine sees either the old or
// the new one, never a mix.
func (s *Scanner) SetTable(table *termtable.Table, opts match.Options) {
	s.mu.Lock()
	s.table = table
	s.opts = opts
	s.mu.Unlock()
}

// ScanSubtree walks the tree rooted at root and rewrites every eligible text
// node: already-rewritten fragments, non-rendering containers and
// do-not-translate regions are skipped. Containers are never pruned, so a
// repeat pass from the root still descends and picks up text a mutation
// notification missed. A panic while scanning one element's subtree is logged
// and isolated; siblings are still scanned.
func (s *Scanner) ScanSubtree(root *html.Node) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	if root == nil || s.table == nil {
		return stats
	}
	s.walk(root, &stats)
	return stats
}

func (s *Scanner) walk(n *html.Node, stats *Stats) {
	if _, done := s.processed[n]; done {
		return
	}

	switch n.Type {
	case html.TextNode:
		s.rewriteTextNode(n, stats)
		return
	case html.DocumentNode:
	case html.ElementNode:
		if skipElement(n) {
			return
		}
	default:
		return
	}

	// Children are replaced in place, so take the next sibling before
	// descending.
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		s.safeWalk(c, stats)
		c = next
	}
}

// safeWalk isolates a panic to the subtree that raised it.
func (s *Scanner) safeWalk(n *html.Node, stats *Stats) {
	defer func() {
		if r := recover(); r != nil {
			stats.Failures++
			s.logger.Error("scan failed for <%s> subtree: %v", nodeName(n), r)
		}
	}()
	s.walk(n, stats)
}

func (s *Scanner) rewriteTextNode(tn *html.Node, stats *Stats) {
	parent := tn.Parent
	if parent == nil {
		return
	}
	stats.TextNodes++

	matches := match.Find(tn.Data, s.table, s.opts)
	result := rewrite.Apply(tn.Data, matches, s.table)
	if !result.Changed() {
		// No-op guarantee: the node is left untouched.
		return
	}

	record := &rewriteRecord{parent: parent, original: tn.Data}
	for _, frag := range result.Fragments {
		var n *html.Node
		if frag.Occurrence == nil {
			n = &html.Node{Type: html.TextNode, Data: frag.Text}
		} else {
			n = wrapperNode(frag.Occurrence)
			stats.Occurrences++
		}
		// Inserted fragments are finished content: a later pass must not
		// translate the translation, nor re-match a verbatim gap whose word
		// boundaries the split changed.
		s.processed[n] = struct{}{}
		parent.InsertBefore(n, tn)
		record.inserted = append(record.inserted, n)
	}
	parent.RemoveChild(tn)

	s.records = append(s.records, record)
	stats.Rewritten++
}

// Revert restores the original text of every recorded rewrite, newest first,
// and releases all processed markers. Rewrites whose parent was detached in
// the meantime are dropped silently.
func (s *Scanner) Revert() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if len(rec.inserted) == 0 || rec.inserted[0].Parent != rec.parent {
			continue
		}
		rec.parent.InsertBefore(&html.Node{Type: html.TextNode, Data: rec.original}, rec.inserted[0])
		for _, n := range rec.inserted {
			if n.Parent == rec.parent {
				rec.parent.RemoveChild(n)
			}
		}
	}

	s.records = nil
	s.processed = make(map[*html.Node]struct{})
}

// Forget drops all markers and rewrite records under a detached subtree so
// the bookkeeping cannot outlive the nodes it points at.
func (s *Scanner) Forget(root *html.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gone := make(map[*html.Node]struct{})
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		gone[n] = struct{}{}
		delete(s.processed, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(root)

	kept := s.records[:0]
	for _, rec := range s.records {
		if _, dropped := gone[rec.parent]; !dropped {
			kept = append(kept, rec)
		}
	}
	s.records = kept
}

// wrapperNode builds the inert inline element carrying one occurrence and
// its hover metadata.
func wrapperNode(occ *rewrite.Occurrence) *html.Node {
	span := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     "span",
		Attr: []html.Attribute{
			{Key: "class", Val: WrapperClass},
			{Key: AttrSource, Val: occ.SourceText},
			{Key: AttrLang, Val: occ.SourceLang},
			{Key: AttrIndex, Val: strconv.Itoa(occ.Index)},
		},
	}
	if occ.HasDef {
		span.Attr = append(span.Attr, html.Attribute{Key: AttrDefinition, Val: occ.Definition})
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: occ.Translated})
	return span
}

// skipElement reports whether an element's subtree must not be translated:
// non-rendering containers, user-editable or do-not-translate regions, and
// the scanner's own wrappers.
func skipElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Textarea:
		return true
	}

	for _, a := range n.Attr {
		switch a.Key {
		case "translate":
			if strings.EqualFold(a.Val, "no") {
				return true
			}
		case "contenteditable":
			if !strings.EqualFold(a.Val, "false") {
				return true
			}
		case "class":
			if hasClass(a.Val, WrapperClass) {
				return true
			}
		}
	}
	return false
}

func hasClass(attr, class string) bool {
	for _, c := range strings.Fields(attr) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeName(n *html.Node) string {
	if n.Type == html.ElementNode {
		return n.Data
	}
	return "#text"
}

