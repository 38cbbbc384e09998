package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/golang/glog"

	"github.com/lnpush/agent/notify"
	"github.com/lnpush/agent/wallet"
)

type swapUpdatedRequest struct {
	// ID is the one-way hash of the swap id, never the raw id
	ID     string `json:"id"`
	Status string `json:"status"`
}

var errSwapPending = errors.New("swap still pending")

// swapUpdatedJob waits for a swap to settle. Completion can come from the
// forwarded SDK event stream or from the polling fallback, whichever observes
// the terminal condition first; the notified guard keeps the two paths from
// emitting twice. When the settled invoice carries a zap request the job
// stays open until the NWC plugin reports the published receipt.
type swapUpdatedJob struct {
	*reporter
	payload      string
	pollInterval time.Duration

	// mu guards the correlation state: events are forwarded to the job
	// before Start runs, so every field below is read from the event
	// goroutine while Start is still writing.
	mu         sync.Mutex
	swapIDHash string
	zapInvoice string
	nwc        wallet.NwcService
}

func newSwapUpdatedJob(payload string, deps Deps) *swapUpdatedJob {
	return &swapUpdatedJob{
		reporter:     newReporter(TypeSwapUpdated, deps),
		payload:      payload,
		pollInterval: DefaultPollInterval,
	}
}

func (j *swapUpdatedJob) Start(ctx context.Context, handle wallet.APICalls) {
	j.setState(Running)

	if nwc, err := j.deps.Plugins.Nwc(handle, j.deps.PluginConfigs); err != nil {
		glog.Warningf("Failed to start NWC service: %v", err)
	} else if nwc != nil {
		j.mu.Lock()
		j.nwc = nwc
		j.mu.Unlock()
		if err := nwc.AddEventListener(j); err != nil {
			glog.Warningf("Failed to listen on NWC service: %v", err)
		}
	}

	var req swapUpdatedRequest
	if err := json.Unmarshal([]byte(j.payload), &req); err != nil || req.ID == "" {
		glog.Warningf("Bad swap updated payload %s: %v", truncatePayload(j.payload), err)
		j.notifyOnce(titlePaymentPending, textPaymentPending, notify.ThreadDismissible)
		j.finish(Failed)
		return
	}

	j.mu.Lock()
	j.swapIDHash = req.ID
	j.mu.Unlock()

	if j.wasNotified(req.ID) {
		glog.Infof("Swap %s already notified, skipping", req.ID)
		j.suppressNotify()
		j.finish(Completed)
		return
	}

	j.setState(Polling)
	go j.poll(ctx, handle, req.ID)
}

func (j *swapUpdatedJob) swapHash() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.swapIDHash
}

// poll re-queries the payment at a fixed interval until it reaches a
// terminal condition or the deadline cancels the context. Terminal
// observations are funneled through OnEvent so the polling path and the
// event path share one completion route.
func (j *swapUpdatedJob) poll(ctx context.Context, handle wallet.APICalls, swapIDHash string) {
	operation := func() error {
		payment, err := handle.GetPaymentBySwapID(ctx, swapIDHash)
		if err != nil {
			return backoff.Permanent(err)
		}
		if payment == nil {
			return errSwapPending
		}

		switch payment.Status {
		case wallet.PaymentComplete:
			j.OnEvent(wallet.PaymentSucceededEvent{Payment: *payment})
			return nil
		case wallet.PaymentWaitingFeeAcceptance:
			j.OnEvent(wallet.PaymentWaitingFeeAcceptanceEvent{Payment: *payment})
			return nil
		case wallet.PaymentPending:
			if payment.ClaimTxID() != "" {
				j.OnEvent(wallet.PaymentWaitingConfirmationEvent{Payment: *payment})
				return nil
			}
		}

		return errSwapPending
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.NewConstantBackOff(j.pollInterval), ctx))
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, errSwapPending) {
		glog.Errorf("Polling swap %s stopped: %v", swapIDHash, err)
	}
}

func (j *swapUpdatedJob) OnEvent(e wallet.Event) {
	switch ev := e.(type) {
	case wallet.PaymentSucceededEvent:
		j.handleSuccess(ev.Payment)
	case wallet.PaymentWaitingConfirmationEvent:
		j.handleSuccess(ev.Payment)
	case wallet.PaymentWaitingFeeAcceptanceEvent:
		j.handleFeeAcceptance(ev.Payment)
	default:
		glog.V(3).Infof("Ignoring event %T", e)
	}
}

// matches checks the derived swap id of an event payment against the
// correlation key, exact equality only
func (j *swapUpdatedJob) matches(p wallet.Payment) bool {
	swapID := p.SwapID()
	hash := j.swapHash()
	return swapID != "" && hash != "" && wallet.HashID(swapID) == hash
}

func (j *swapUpdatedJob) handleSuccess(p wallet.Payment) {
	if !j.matches(p) {
		return
	}
	glog.V(2).Infof("Received payment event for swap %s in state %s", j.swapHash(), p.Status)

	title, text := titlePaymentReceived, textPaymentReceived
	if p.Type == wallet.PaymentSend {
		title, text = titlePaymentSent, textPaymentSent
	}

	if j.notifyOnce(title, fmt.Sprintf(text, p.AmountSat), notify.ThreadDismissible) {
		j.markNotified(j.swapHash())
	}
	j.checkAndTrackZap(p)
}

// checkAndTrackZap keeps the job open for a received zap until the plugin
// confirms the published receipt. Anything else completes right away; a
// receipt that never arrives is closed out by the job deadline.
func (j *swapUpdatedJob) checkAndTrackZap(p wallet.Payment) {
	j.mu.Lock()
	nwc := j.nwc
	j.mu.Unlock()

	invoice := p.Invoice()
	if nwc == nil || p.Type == wallet.PaymentSend || invoice == "" {
		j.finish(Completed)
		return
	}

	isZap, err := nwc.IsZap(invoice)
	if err != nil {
		glog.Warningf("Failed to check for zap: %v", err)
	}
	if err != nil || !isZap {
		j.finish(Completed)
		return
	}

	glog.Infof("Swap %s pays a zap, waiting for the receipt", j.swapHash())
	j.mu.Lock()
	j.zapInvoice = invoice
	j.mu.Unlock()
	j.setState(AwaitingEvent)
}

func (j *swapUpdatedJob) OnNwcEvent(e wallet.NwcEvent) {
	zap, ok := e.Details.(wallet.NwcZapReceived)
	if !ok {
		return
	}

	j.mu.Lock()
	invoice := j.zapInvoice
	j.mu.Unlock()
	if invoice == "" || zap.Invoice != invoice {
		return
	}

	glog.Infof("Zap receipt published for swap %s", j.swapHash())
	j.finish(Completed)
}

func (j *swapUpdatedJob) handleFeeAcceptance(p wallet.Payment) {
	if !j.matches(p) {
		return
	}
	glog.Infof("Swap %s requires fee acceptance", j.swapHash())

	j.notifyOnce(titleFeeAcceptance, textFeeAcceptance, notify.ThreadDismissible)
	j.finish(Completed)
}

func (j *swapUpdatedJob) OnShutdown() {
	if hash := j.swapHash(); hash != "" {
		glog.Infof("Swap %s processing did not complete in time", hash)
	}
	j.notifyOnce(titlePaymentPending, textPaymentPending, notify.ThreadDismissible)
	j.finish(ShutDown)
}
