package notify

import (
	"sync"

	"github.com/golang/glog"
)

// Notification threads. Notifications sharing a thread replace each other.
const (
	ThreadReplaceable = "replaceable"
	ThreadDismissible = "dismissible"
)

// Sink is the platform notification display, provided by the host
type Sink interface {
	Show(title, body, thread string) error
	RemoveNotifications(thread string) error
}

// Notifier displays notifications through a Sink, clearing delivered
// notifications of the same thread first so the user never sees two entries
// for one logical event.
type Notifier struct {
	sink Sink
}

// NewNotifier constructs a new Notifier
func NewNotifier(sink Sink) *Notifier {
	return &Notifier{sink: sink}
}

// Notify shows a notification, replacing prior ones in the same thread. Sink
// failures are logged, not propagated, so the shutdown path can always call
// this with no way to react to an error.
func (n *Notifier) Notify(title, body, thread string) {
	glog.V(1).Infof("Showing notification %q on thread %s", title, thread)

	if err := n.sink.RemoveNotifications(thread); err != nil {
		glog.Warningf("Could not remove notifications on thread %s: %v", thread, err)
	}

	if err := n.sink.Show(title, body, thread); err != nil {
		glog.Errorf("Could not show notification %q: %v", title, err)
	}
}

// Notification is one displayed entry, used by MemorySink
type Notification struct {
	Title  string
	Body   string
	Thread string
}

// MemorySink records notifications in memory. Used in tests and as the
// default sink of the standalone agent binary.
type MemorySink struct {
	mu      sync.Mutex
	shown   []Notification
	removed []string
}

// Compile time check for the interface
var _ Sink = &MemorySink{}

func (s *MemorySink) Show(title, body, thread string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, Notification{Title: title, Body: body, Thread: thread})
	return nil
}

func (s *MemorySink) RemoveNotifications(thread string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, thread)

	kept := s.shown[:0]
	for _, n := range s.shown {
		if n.Thread != thread {
			kept = append(kept, n)
		}
	}
	s.shown = kept
	return nil
}

// Shown returns a copy of the currently displayed notifications
func (s *MemorySink) Shown() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.shown))
	copy(out, s.shown)
	return out
}

// Removed returns the threads cleared so far
func (s *MemorySink) Removed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.removed))
	copy(out, s.removed)
	return out
}
