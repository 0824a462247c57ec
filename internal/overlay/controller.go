// Package overlay drives the translation lifecycle for one document: load
// settings, build the term table, run the full scan, then follow mutations
// and settings changes until disabled.
package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/net/html"

	"github.com/termlens/termlens/internal/domscan"
	"github.com/termlens/termlens/internal/gamepack"
	"github.com/termlens/termlens/internal/match"
	"github.com/termlens/termlens/internal/settings"
	"github.com/termlens/termlens/internal/termtable"
	"github.com/termlens/termlens/internal/watch"
	"github.com/termlens/termlens/pkg/log"
)

type State int

const (
	StateDisabled State = iota
	StateScanning
	StateObserving
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateObserving:
		return "observing"
	default:
		return "disabled"
	}
}

// Controller owns the enabled/disabled state machine. The current term table
// is replaced wholesale on every package or language change, never mutated.
type Controller struct {
	provider settings.Provider
	source   watch.MutationSource
	root     *html.Node
	logger   *log.Logger

	rescanSpec string

	mu          sync.Mutex
	state       State
	enabled     bool
	targetLang  string
	pkg         *gamepack.Package
	scanner     *domscan.Scanner
	tracker     *watch.Tracker
	unsubscribe func()
	rescanCron  *cron.Cron
}

type Option func(*Controller)

func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRescanSchedule adds a periodic full-scan pass (standard cron syntax)
// as a catch-up for mutation sources that can miss changes. The pass
// respects processed markers, so it is a no-op on an unchanged tree.
func WithRescanSchedule(spec string) Option {
	return func(c *Controller) {
		c.rescanSpec = spec
	}
}

func New(provider settings.Provider, source watch.MutationSource, root *html.Node, opts ...Option) *Controller {
	c := &Controller{
		provider: provider,
		source:   source,
		root:     root,
		logger:   log.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start loads the stored settings and, when translation is enabled with a
// loaded package, runs the initial full scan and begins observing. A
// provider failure keeps the controller Disabled and is returned to the
// caller for retry; nothing is half-applied.
func (c *Controller) Start(ctx context.Context) error {
	values, err := c.provider.Get(ctx,
		settings.KeyIsEnabled, settings.KeyTargetLang, settings.KeyGamePackage)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = settings.Bool(values, settings.KeyIsEnabled, false)
	c.targetLang = settings.String(values, settings.KeyTargetLang, "")
	if raw, ok := values[settings.KeyGamePackage]; ok {
		pkg, err := gamepack.Decode(raw)
		if err != nil {
			c.logger.Error("stored game package rejected: %v", err)
		} else {
			c.pkg = pkg
		}
	}

	c.unsubscribe = c.provider.OnChange(c.handleChanges)
	c.reconcileLocked()
	return nil
}

// Stop disables translation and detaches from the provider.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.disableLocked()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LoadPackage validates a new game package and stores it through the
// provider. A ValidationError leaves the previous package active.
func (c *Controller) LoadPackage(ctx context.Context, data []byte) error {
	if _, err := gamepack.Decode(data); err != nil {
		return err
	}

	// The provider change notification carries the package back into
	// handleChanges, which re-runs the state machine.
	raw := json.RawMessage(data)
	if err := c.provider.Set(ctx, map[string]json.RawMessage{settings.KeyGamePackage: raw}); err != nil {
		return fmt.Errorf("store game package: %w", err)
	}
	return nil
}

// handleChanges reacts to provider notifications. A change to the target
// language or the package invalidates all prior rewrites: revert, rebuild
// the table, rescan from the root.
func (c *Controller) handleChanges(changes map[string]settings.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()

	invalidated := false
	for key, change := range changes {
		switch key {
		case settings.KeyIsEnabled:
			c.enabled = decodeBool(change.Raw, false)
		case settings.KeyTargetLang:
			c.targetLang = decodeString(change.Raw, "")
			invalidated = true
		case settings.KeyGamePackage:
			if change.Raw == nil {
				c.pkg = nil
				invalidated = true
				break
			}
			pkg, err := gamepack.Decode(change.Raw)
			if err != nil {
				// Rejected: the previous package stays active.
				c.logger.Error("game package rejected: %v", err)
				continue
			}
			c.pkg = pkg
			invalidated = true
		}
	}

	if invalidated && c.state != StateDisabled {
		c.disableLocked()
	}
	c.reconcileLocked()
}

// reconcileLocked moves the state machine to where the current settings say
// it should be.
func (c *Controller) reconcileLocked() {
	shouldRun := c.enabled && c.pkg != nil && c.targetLang != ""

	switch {
	case shouldRun && c.state == StateDisabled:
		c.enableLocked()
	case !shouldRun && c.state != StateDisabled:
		c.disableLocked()
	}
}

func (c *Controller) enableLocked() {
	table, err := termtable.FromPackage(c.pkg, c.targetLang)
	if err != nil {
		c.logger.Error("cannot build term table: %v", err)
		return
	}

	opts := match.Options{
		CaseSensitive: c.pkg.Settings.CaseSensitive,
		WholeWord:     !c.pkg.Settings.EnablePartialMatch,
	}

	c.scanner = domscan.NewScanner(table, opts, domscan.WithLogger(c.logger))
	c.tracker = watch.NewTracker(c.source, c.scanner, c.logger)

	c.state = StateScanning
	stats := c.scanner.ScanSubtree(c.root)
	c.logger.Info("full scan: %d text node(s), %d occurrence(s), %d failure(s)",
		stats.TextNodes, stats.Occurrences, stats.Failures)

	c.tracker.Start(c.root)
	c.startRescanCronLocked()
	c.state = StateObserving
}

// disableLocked tears translation down: unsubscribe from mutations first so
// nothing scans while originals are being restored, then revert.
func (c *Controller) disableLocked() {
	if c.rescanCron != nil {
		c.rescanCron.Stop()
		c.rescanCron = nil
	}
	if c.tracker != nil {
		c.tracker.Stop()
		c.tracker = nil
	}
	if c.scanner != nil {
		// Drop the table first: a straggling scheduled rescan between here
		// and the revert becomes a no-op instead of re-translating.
		c.scanner.SetTable(nil, match.Options{})
		c.scanner.Revert()
		c.scanner = nil
	}
	c.state = StateDisabled
}

func (c *Controller) startRescanCronLocked() {
	if c.rescanSpec == "" {
		return
	}

	runner := cron.New()
	scanner := c.scanner
	root := c.root
	if _, err := runner.AddFunc(c.rescanSpec, func() {
		stats := scanner.ScanSubtree(root)
		if stats.Occurrences > 0 {
			c.logger.Info("scheduled rescan picked up %d occurrence(s)", stats.Occurrences)
		}
	}); err != nil {
		c.logger.Error("invalid rescan schedule %q: %v", c.rescanSpec, err)
		return
	}
	runner.Start()
	c.rescanCron = runner
}

// IsValidationError reports whether err is a package validation failure, as
// opposed to a storage failure.
func IsValidationError(err error) bool {
	var verr *gamepack.ValidationError
	return errors.As(err, &verr)
}

func decodeBool(raw json.RawMessage, fallback bool) bool {
	if raw == nil {
		return fallback
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return fallback
	}
	return v
}

func decodeString(raw json.RawMessage, fallback string) string {
	if raw == nil {
		return fallback
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return fallback
	}
	return v
}
