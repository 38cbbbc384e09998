package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/lnpush/agent/connector"
	"github.com/lnpush/agent/monitoring"
	"github.com/lnpush/agent/notify"
	"github.com/lnpush/agent/reply"
	"github.com/lnpush/agent/store"
	"github.com/lnpush/agent/wallet"
)

// Message types carried in the push payload
const (
	TypeInvoiceRequest  = "invoice_request"
	TypeLnurlPayInfo    = "lnurlpay_info"
	TypeLnurlPayInvoice = "lnurlpay_invoice"
	TypeLnurlPayVerify  = "lnurlpay_verify"
	TypeSwapUpdated     = "swap_updated"
	TypeNwcEvent        = "nwc_event"
)

// DefaultPollInterval is how often the swap polling fallback re-queries state
const DefaultPollInterval = 5 * time.Second

// CommentMaxLength caps the payer comment of an LNURL-pay invoice
const CommentMaxLength = 256

// DefaultPayLabel is the human readable LNURL-pay metadata label
const DefaultPayLabel = "Pay with LNURL"

// State enum
type State int32

// States
const (
	Created State = iota
	AwaitingConnection
	Running
	AwaitingEvent
	Polling
	Completed
	Failed
	ShutDown
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case AwaitingConnection:
		return "awaitingconnection"
	case Running:
		return "running"
	case AwaitingEvent:
		return "awaitingevent"
	case Polling:
		return "polling"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case ShutDown:
		return "shutdown"
	}
	return "unknown"
}

// Terminal reports whether the state ends the job
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == ShutDown
}

// Job is one push-notification triggered unit of work. Start never returns an
// error: every failure is converted to a terminal notification (and reply,
// when a reply URL is known) inside the job. Event driven jobs return from
// Start once listening and reach a terminal state later; Done is closed on
// any terminal transition. OnShutdown is the deadline path and must be safe
// to call at any point, including after completion.
type Job interface {
	wallet.EventListener

	Start(ctx context.Context, handle wallet.APICalls)
	OnShutdown()
	State() State
	Done() <-chan struct{}
}

// Deps is everything a job needs besides the SDK handle
type Deps struct {
	Reply         *reply.Sender
	Notify        *notify.Notifier
	Plugins       *connector.Plugins
	PluginConfigs connector.PluginConfigs
	Metrics       *monitoring.Metrics
	// Store is optional, nil disables cross-process dedup
	Store *store.NotifiedStore
	// PayLabel overrides DefaultPayLabel in LNURL metadata
	PayLabel string
}

func (d Deps) payLabel() string {
	if d.PayLabel != "" {
		return d.PayLabel
	}
	return DefaultPayLabel
}

// Build maps a message type to a job. Pure construction, no I/O.
func Build(jobType, payload string, deps Deps) (Job, error) {
	switch jobType {
	case TypeInvoiceRequest:
		return newInvoiceRequestJob(payload, deps), nil
	case TypeLnurlPayInfo:
		return newLnurlPayInfoJob(payload, deps), nil
	case TypeLnurlPayInvoice:
		return newLnurlPayInvoiceJob(payload, deps), nil
	case TypeLnurlPayVerify:
		return newLnurlPayVerifyJob(payload, deps), nil
	case TypeSwapUpdated:
		return newSwapUpdatedJob(payload, deps), nil
	case TypeNwcEvent:
		return newNwcEventJob(payload, deps), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
}
