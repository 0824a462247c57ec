package watch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/termlens/termlens/internal/domscan"
	"github.com/termlens/termlens/internal/match"
	"github.com/termlens/termlens/internal/termtable"
)

func testScanner(t *testing.T) *domscan.Scanner {
	t.Helper()
	table, err := termtable.Load(map[string][]string{
		"en": {"Engine", "Skill"},
		"ja": {"エンジン", "スキル"},
	}, nil, "en", []string{"en", "ja"})
	require.NoError(t, err)
	return domscan.NewScanner(table, match.Options{})
}

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func newParagraph(text string) *html.Node {
	p := &html.Node{Type: html.ElementNode, DataAtom: atom.P, Data: "p"}
	p.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return p
}

func renderContains(t *testing.T, n *html.Node, want string) bool {
	t.Helper()
	var b strings.Builder
	require.NoError(t, html.Render(&b, n))
	return strings.Contains(b.String(), want)
}

func TestTracker_ScansAddedNodes(t *testing.T) {
	doc := parse(t, `<html><body><div id="root"></div></body></html>`)
	scanner := testScanner(t)
	scanner.ScanSubtree(doc)

	source := NewManualSource()
	tracker := NewTracker(source, scanner, nil)
	tracker.Start(doc)
	require.True(t, tracker.Active())

	p := newParagraph("fresh エンジン content")
	body := doc.FirstChild.LastChild // html > body
	body.AppendChild(p)
	source.Emit(p)

	assert.True(t, renderContains(t, doc, ">Engine</span>"))
}

func TestTracker_BurstDoesNotDoubleProcess(t *testing.T) {
	doc := parse(t, `<html><body></body></html>`)
	scanner := testScanner(t)
	scanner.ScanSubtree(doc)

	source := NewManualSource()
	tracker := NewTracker(source, scanner, nil)
	tracker.Start(doc)

	body := doc.FirstChild.LastChild
	div := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	p := newParagraph("スキル")
	div.AppendChild(p)
	body.AppendChild(div)

	// One burst may report both an ancestor and its descendant; the
	// descendant must not be rewritten twice.
	source.Emit(div, p)
	source.Emit(div)

	var b strings.Builder
	require.NoError(t, html.Render(&b, doc))
	assert.Equal(t, 1, strings.Count(b.String(), "termlens-term"))
}

func TestTracker_StopDropsNotifications(t *testing.T) {
	doc := parse(t, `<html><body></body></html>`)
	scanner := testScanner(t)

	source := NewManualSource()
	tracker := NewTracker(source, scanner, nil)
	tracker.Start(doc)
	tracker.Stop()
	assert.False(t, tracker.Active())

	body := doc.FirstChild.LastChild
	p := newParagraph("エンジン")
	body.AppendChild(p)
	source.Emit(p)

	assert.False(t, renderContains(t, doc, "termlens-term"))
}

func TestTracker_IncrementalScanLeavesRestAlone(t *testing.T) {
	doc := parse(t, `<html><body><p id="old">エンジン</p></body></html>`)
	scanner := testScanner(t)
	scanner.ScanSubtree(doc)

	var before strings.Builder
	require.NoError(t, html.Render(&before, doc))

	source := NewManualSource()
	tracker := NewTracker(source, scanner, nil)
	tracker.Start(doc)

	body := doc.FirstChild.LastChild
	p := newParagraph("untranslated スキル term")
	body.AppendChild(p)
	source.Emit(p)

	var after strings.Builder
	require.NoError(t, html.Render(&after, doc))

	// Only the new subtree changed; the previously translated paragraph is
	// byte-identical.
	assert.Contains(t, after.String(), before.String()[strings.Index(before.String(), "<p id=\"old\">"):strings.Index(before.String(), "</p>")])
	assert.Contains(t, after.String(), ">Skill</span>")
}

func TestManualSource_EmitBeforeObserve(t *testing.T) {
	source := NewManualSource()
	assert.NotPanics(t, func() {
		source.Emit(newParagraph("x"))
	})
}
