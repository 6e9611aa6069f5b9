// Package shell is the navigation shell: the active tab, the active context
// scope, and transfer payloads waiting for their destination tab.
//
// The update loop is the single writer. Other goroutines, such as the event
// bridge, may read through Snapshot.
package shell

import (
	"sort"
	"sync"

	"github.com/kingrea/workbench/internal/onboarding"
	"github.com/kingrea/workbench/internal/scope"
)

// Shell holds cross-tab state. The zero value is not usable; call New.
type Shell struct {
	mu      sync.RWMutex
	active  Tab
	scope   scope.Scope
	pending map[Tab]Payload
}

// New returns a shell showing initial.
func New(initial Tab) *Shell {
	if initial.Index() < 0 {
		initial = TabDashboard
	}
	return &Shell{active: initial, pending: make(map[Tab]Payload)}
}

// ActiveTab returns the tab currently shown.
func (s *Shell) ActiveTab() Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Scope returns the active context scope.
func (s *Shell) Scope() scope.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// Navigate activates tab. A non-nil payload replaces any payload already
// waiting for that tab and is delivered at most once by Consume.
func (s *Shell) Navigate(tab Tab, payload Payload) error {
	if _, err := ParseTab(string(tab)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = tab
	if payload != nil {
		s.pending[tab] = payload
	}
	return nil
}

// Consume hands the pending payload for tab to the caller and clears it.
func (s *Shell) Consume(tab Tab) (Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[tab]
	if ok {
		delete(s.pending, tab)
	}
	return p, ok
}

// Peek reports the pending payload for tab without consuming it.
func (s *Shell) Peek(tab Tab) (Payload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[tab]
	return p, ok
}

// ApplyScope replaces the active scope wholesale and opens the workbench
// with it pending.
func (s *Shell) ApplyScope(sc scope.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = sc
	s.active = TabWorkbench
	s.pending[TabWorkbench] = ScopePayload{Scope: sc}
}

// MountScope replaces the active scope without navigating. The workbench
// uses it after a launch finishes cloning.
func (s *Shell) MountScope(sc scope.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scope = sc
}

// Launch opens the workbench with the onboarding result pending.
func (s *Shell) Launch(l onboarding.Launch) error {
	if err := l.Validate(); err != nil {
		return err
	}
	return s.Navigate(TabWorkbench, LaunchPayload{Launch: l})
}

// Snapshot is a read-only copy of the shell state.
type Snapshot struct {
	ActiveTab Tab                 `json:"active_tab"`
	Scope     *scope.View         `json:"scope,omitempty"`
	Pending   map[Tab]PayloadKind `json:"pending"`
}

// Snapshot copies the current state. Safe for concurrent use.
func (s *Shell) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{ActiveTab: s.active, Pending: make(map[Tab]PayloadKind, len(s.pending))}
	if !s.scope.IsZero() {
		view := s.scope.View()
		snap.Scope = &view
	}
	for tab, p := range s.pending {
		snap.Pending[tab] = p.Kind()
	}
	return snap
}

// PendingTabs lists tabs with a waiting payload in display order.
func (snap Snapshot) PendingTabs() []Tab {
	out := make([]Tab, 0, len(snap.Pending))
	for tab := range snap.Pending {
		out = append(out, tab)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}
