package domain

import (
	"fmt"
	"strings"
)

// Status is a lifecycle state drawn from the configured vocabulary.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusReported   Status = "REPORTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
	StatusRejected   Status = "REJECTED"
	StatusCancelled  Status = "CANCELLED"
)

// NormalizeToken upper-cases raw and folds dashes and spaces into underscores.
func NormalizeToken(raw string) string {
	token := strings.ToUpper(strings.TrimSpace(raw))
	return strings.NewReplacer("-", "_", " ", "_").Replace(token)
}

// Lifecycle is the status vocabulary plus the transition rule. The first
// status is the start state; it cannot be re-entered. Terminal states cannot
// be left.
type Lifecycle struct {
	statuses []Status
	known    map[Status]struct{}
	terminal map[Status]struct{}
	aliases  map[string]Status
}

// NewLifecycle validates and builds a vocabulary.
func NewLifecycle(statuses, terminal []string, aliases map[string]string) (*Lifecycle, error) {
	l := &Lifecycle{
		known:    make(map[Status]struct{}),
		terminal: make(map[Status]struct{}),
		aliases:  make(map[string]Status),
	}
	for _, raw := range statuses {
		s := Status(NormalizeToken(raw))
		if s == "" {
			continue
		}
		if _, dup := l.known[s]; dup {
			return nil, fmt.Errorf("duplicate status %q", s)
		}
		l.known[s] = struct{}{}
		l.statuses = append(l.statuses, s)
	}
	if len(l.statuses) == 0 {
		return nil, fmt.Errorf("status vocabulary is empty")
	}
	for _, raw := range terminal {
		s := Status(NormalizeToken(raw))
		if s == "" {
			continue
		}
		if _, ok := l.known[s]; !ok {
			return nil, fmt.Errorf("terminal status %q is not in the vocabulary", s)
		}
		if s == l.statuses[0] {
			return nil, fmt.Errorf("start status %q cannot be terminal", s)
		}
		l.terminal[s] = struct{}{}
	}
	for from, to := range aliases {
		target := Status(NormalizeToken(to))
		if _, ok := l.known[target]; !ok {
			return nil, fmt.Errorf("alias %q targets unknown status %q", from, to)
		}
		l.aliases[NormalizeToken(from)] = target
	}
	return l, nil
}

// Initial returns the status every new incident starts in.
func (l *Lifecycle) Initial() Status {
	return l.statuses[0]
}

// Statuses returns the vocabulary in configured order.
func (l *Lifecycle) Statuses() []Status {
	return append([]Status(nil), l.statuses...)
}

// Normalize maps user input onto a status in the vocabulary.
func (l *Lifecycle) Normalize(raw string) (Status, bool) {
	token := NormalizeToken(raw)
	if token == "" {
		return "", false
	}
	if _, ok := l.known[Status(token)]; ok {
		return Status(token), true
	}
	s, ok := l.aliases[token]
	return s, ok
}

// IsTerminal reports whether s can no longer change.
func (l *Lifecycle) IsTerminal(s Status) bool {
	_, ok := l.terminal[s]
	return ok
}

// CanTransition reports whether an incident in from may move to to.
func (l *Lifecycle) CanTransition(from, to Status) bool {
	if _, ok := l.known[to]; !ok || to == l.Initial() {
		return false
	}
	if _, ok := l.known[from]; !ok {
		return false
	}
	return !l.IsTerminal(from)
}

// SourcesFor lists the statuses from which to may be entered.
func (l *Lifecycle) SourcesFor(to Status) []Status {
	var out []Status
	for _, from := range l.statuses {
		if l.CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}
