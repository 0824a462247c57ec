package watch

import (
	"sync"

	"golang.org/x/net/html"
)

// ManualSource is a MutationSource driven by explicit Emit calls. Hosts that
// modify the tree themselves report insertions through it; it also stands in
// for a real observer in tests.
type ManualSource struct {
	mu       sync.Mutex
	listener func(added []*html.Node)
}

func NewManualSource() *ManualSource {
	return &ManualSource{}
}

func (s *ManualSource) Observe(_ *html.Node, listener func(added []*html.Node)) {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
}

func (s *ManualSource) Disconnect() {
	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()
}

// Emit delivers one mutation batch to the listener, synchronously, in the
// order given. Emits before Observe or after Disconnect are dropped.
func (s *ManualSource) Emit(added ...*html.Node) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(added)
	}
}
