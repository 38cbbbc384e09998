package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/golang/glog"

	"github.com/lnpush/agent/notify"
	"github.com/lnpush/agent/wallet"
)

type nwcEventRequest struct {
	EventID string `json:"event_id"`
}

// nwcEventJob hands a relay event to the NWC plugin and waits for the plugin
// to report the processed event back. Matching is exact on the event id,
// non-matching events and unknown kinds are ignored without a transition.
type nwcEventJob struct {
	*reporter
	payload string
	eventID string
}

func newNwcEventJob(payload string, deps Deps) *nwcEventJob {
	return &nwcEventJob{reporter: newReporter(TypeNwcEvent, deps), payload: payload}
}

func (j *nwcEventJob) Start(ctx context.Context, handle wallet.APICalls) {
	j.setState(Running)

	nwc, err := j.deps.Plugins.Nwc(handle, j.deps.PluginConfigs)
	if err != nil {
		glog.Warningf("Failed to start NWC service: %v", err)
		j.notifyOnce(titleNwcFailure, "", notify.ThreadDismissible)
		j.finish(Failed)
		return
	}
	if nwc == nil {
		// plugin not configured, nothing to do
		j.finish(Completed)
		return
	}

	var req nwcEventRequest
	if err := json.Unmarshal([]byte(j.payload), &req); err != nil || req.EventID == "" {
		glog.Warningf("Bad NWC event payload %s: %v", truncatePayload(j.payload), err)
		j.notifyOnce(titleNwcFailure, "", notify.ThreadDismissible)
		j.finish(Failed)
		return
	}

	// The id must be in place before the listener is installed, the plugin
	// may deliver the processed event from another goroutine right away.
	j.eventID = req.EventID

	if err := nwc.AddEventListener(j); err != nil {
		glog.Warningf("Failed to listen on NWC service: %v", err)
		j.notifyOnce(titleNwcFailure, "", notify.ThreadDismissible)
		j.finish(Failed)
		return
	}

	j.setState(AwaitingEvent)

	if err := nwc.HandleEvent(ctx, req.EventID); err != nil {
		glog.Warningf("Failed to process NWC event: %v", err)
		j.notifyOnce(titleNwcFailure, "", notify.ThreadDismissible)
		j.finish(Failed)
	}
}

func (j *nwcEventJob) OnEvent(e wallet.Event) {}

func (j *nwcEventJob) OnNwcEvent(e wallet.NwcEvent) {
	if j.eventID == "" || j.eventID != e.EventID {
		return
	}

	var operation string
	switch e.Details.(type) {
	case wallet.NwcGetBalance:
		operation = "Get Balance"
	case wallet.NwcListTransactions:
		operation = "List Transactions"
	case wallet.NwcPayInvoice:
		operation = "Pay Invoice"
	case wallet.NwcMakeInvoice:
		operation = "Make Invoice"
	case wallet.NwcGetInfo:
		operation = "Get Info"
	default:
		return
	}

	j.notifyOnce(fmt.Sprintf(titleNwcSuccess, operation), "", notify.ThreadDismissible)
	j.finish(Completed)
}

func (j *nwcEventJob) OnShutdown() {
	j.notifyOnce(titleNwcFailure, "", notify.ThreadDismissible)
	j.finish(ShutDown)
}
