// Package watch reacts to document mutations: every batch of newly inserted
// nodes gets exactly one incremental scan, already-processed content is never
// revisited.
package watch

import (
	"sync"

	"golang.org/x/net/html"

	"github.com/termlens/termlens/internal/domscan"
	"github.com/termlens/termlens/pkg/log"
)

// MutationSource delivers subtree-change notifications for a document. The
// host runtime guarantees batches arrive in order and added nodes within one
// batch come in document order; implementations must call the listener
// sequentially, never concurrently.
type MutationSource interface {
	Observe(root *html.Node, listener func(added []*html.Node))
	Disconnect()
}

// Tracker subscribes a Scanner to a MutationSource.
type Tracker struct {
	source  MutationSource
	scanner *domscan.Scanner
	logger  *log.Logger

	mu     sync.Mutex
	active bool
}

func NewTracker(source MutationSource, scanner *domscan.Scanner, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Tracker{
		source:  source,
		scanner: scanner,
		logger:  logger,
	}
}

// Start begins observing root. Notifications delivered after Stop are
// dropped.
func (t *Tracker) Start(root *html.Node) {
	t.mu.Lock()
	if t.active {
		t.mu.Unlock()
		return
	}
	t.active = true
	t.mu.Unlock()

	t.source.Observe(root, t.handle)
}

// Stop disconnects from the source. It must run before any revert so that no
// scan mutates the tree while originals are being restored.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.mu.Unlock()

	t.source.Disconnect()
}

// Active reports whether the tracker is currently observing.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// handle scans each newly added node in delivered order. Processed markers
// inside the scanner make bursts safe: a node delivered twice, or delivered
// inside an already-scanned ancestor, is a no-op.
func (t *Tracker) handle(added []*html.Node) {
	t.mu.Lock()
	active := t.active
	t.mu.Unlock()
	if !active {
		return
	}

	for _, n := range added {
		stats := t.scanner.ScanSubtree(n)
		if stats.Occurrences > 0 {
			t.logger.Debug("incremental scan: %d occurrence(s) in new <%s> subtree", stats.Occurrences, nodeLabel(n))
		}
	}
}

func nodeLabel(n *html.Node) string {
	if n != nil && n.Type == html.ElementNode {
		return n.Data
	}
	return "#node"
}
