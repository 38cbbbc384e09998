package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/lnpush/agent/connector"
	"github.com/lnpush/agent/monitoring"
)

// lnurlErrorResponse is the generic LNURL error envelope
type lnurlErrorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// reporter is the shared reply-and-notify helper every job delegates to. It
// holds the job state and the guards making the terminal contract hold:
// at most one notification and at most one terminal transition per job, no
// matter how the event path and the deadline path race.
type reporter struct {
	jobType string
	deps    Deps

	state    int32
	notified int32
	doneOnce sync.Once
	done     chan struct{}
}

func newReporter(jobType string, deps Deps) *reporter {
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewNopMetrics()
	}
	if deps.Plugins == nil {
		deps.Plugins = connector.NewPlugins()
	}

	return &reporter{jobType: jobType, deps: deps, done: make(chan struct{})}
}

func (r *reporter) State() State {
	return State(atomic.LoadInt32(&r.state))
}

// setState moves the job to a new state. Terminal states are sticky: a job
// can finish while Start is still unwinding (an event delivered on listener
// registration) and the leftover transitions must not resurrect it.
func (r *reporter) setState(s State) {
	for {
		cur := atomic.LoadInt32(&r.state)
		if State(cur).Terminal() {
			return
		}
		if atomic.CompareAndSwapInt32(&r.state, cur, int32(s)) {
			return
		}
	}
}

func (r *reporter) Done() <-chan struct{} {
	return r.done
}

// finish performs the terminal transition. Only the first call wins, later
// calls (e.g. the deadline racing a late event) are no-ops.
func (r *reporter) finish(s State) {
	r.doneOnce.Do(func() {
		r.setState(s)
		r.deps.Metrics.Count("job."+r.jobType, s.String())
		glog.V(1).Infof("Job %s finished in state %s", r.jobType, s)
		close(r.done)
	})
}

// notifyOnce shows the notification unless one was already shown for this
// job. Reports whether this call did the showing.
func (r *reporter) notifyOnce(title, body, thread string) bool {
	if !atomic.CompareAndSwapInt32(&r.notified, 0, 1) {
		return false
	}
	r.deps.Notify.Notify(title, body, thread)
	r.deps.Metrics.Count("notification", r.jobType)
	return true
}

// suppressNotify marks the job as notified without showing anything. Used
// when the dedup store says a previous process already notified this key.
func (r *reporter) suppressNotify() {
	atomic.StoreInt32(&r.notified, 1)
}

// replyJSON posts v to the reply URL and reports delivery success
func (r *reporter) replyJSON(ctx context.Context, url string, v interface{}, maxAge int) bool {
	body, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("Could not marshal %s reply: %v", r.jobType, err)
		return false
	}

	ok := r.deps.Reply.Post(ctx, url, body, maxAge)
	if ok {
		r.deps.Metrics.Count("reply", "success")
	} else {
		r.deps.Metrics.Count("reply", "failure")
	}
	return ok
}

// replyError best-effort posts the generic error envelope
func (r *reporter) replyError(ctx context.Context, url, reason string) {
	glog.Warningf("Sending error reply for %s: %s", r.jobType, reason)
	r.replyJSON(ctx, url, lnurlErrorResponse{Status: "ERROR", Reason: reason}, 0)
}

// markNotified records the correlation key in the dedup store
func (r *reporter) markNotified(key string) {
	if r.deps.Store == nil || key == "" {
		return
	}
	if err := r.deps.Store.MarkNotified(key); err != nil {
		glog.Warningf("Could not persist notified key: %v", err)
	}
}

// wasNotified consults the dedup store for the correlation key
func (r *reporter) wasNotified(key string) bool {
	if r.deps.Store == nil || key == "" {
		return false
	}
	seen, err := r.deps.Store.WasNotified(key)
	if err != nil {
		glog.Warningf("Could not read notified key: %v", err)
		return false
	}
	return seen
}

// truncatePayload keeps logged payloads short and free of full secrets
func truncatePayload(payload string) string {
	const max = 64
	if len(payload) > max {
		return payload[:max] + "..."
	}
	return payload
}
