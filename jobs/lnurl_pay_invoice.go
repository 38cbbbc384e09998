package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/lnpush/agent/notify"
	"github.com/lnpush/agent/wallet"
)

// ZapTrackingTimeout bounds the wait for a zap receipt after the invoice
// was already delivered to the payer.
const ZapTrackingTimeout = 2 * time.Minute

type lnurlInvoiceRequest struct {
	AmountMsat uint64 `json:"amount"`
	Comment    string `json:"comment"`
	ReplyURL   string `json:"reply_url"`
	VerifyURL  string `json:"verify_url"`
	// Nostr carries the NIP-57 zap request when the pay request is a zap
	Nostr string `json:"nostr"`
}

// lnurlPayInvoiceResponse follows LUD-06 with the optional LUD-21 verify URL:
// https://github.com/lnurl/luds/blob/luds/06.md
// https://github.com/lnurl/luds/blob/luds/21.md
type lnurlPayInvoiceResponse struct {
	Pr     string   `json:"pr"`
	Routes []string `json:"routes"`
	Verify *string  `json:"verify,omitempty"`
}

// lnurlPayInvoiceJob creates the invoice for a validated LNURL-pay amount.
// Synchronous except for zap requests, which keep the job open after the
// reply until the NWC plugin publishes the zap receipt or the tracking
// timeout fires.
type lnurlPayInvoiceJob struct {
	*reporter
	payload    string
	zapTimeout time.Duration

	mu         sync.Mutex
	zapInvoice string
}

func newLnurlPayInvoiceJob(payload string, deps Deps) *lnurlPayInvoiceJob {
	return &lnurlPayInvoiceJob{
		reporter:   newReporter(TypeLnurlPayInvoice, deps),
		payload:    payload,
		zapTimeout: ZapTrackingTimeout,
	}
}

func (j *lnurlPayInvoiceJob) Start(ctx context.Context, handle wallet.APICalls) {
	defer j.deps.Metrics.JobTimer(TypeLnurlPayInvoice)()
	j.setState(Running)

	var req lnurlInvoiceRequest
	if err := json.Unmarshal([]byte(j.payload), &req); err != nil || req.ReplyURL == "" {
		glog.Warningf("Bad lnurl invoice payload %s: %v", truncatePayload(j.payload), err)
		j.notifyOnce(titleLnurlPayFailure, "", notify.ThreadReplaceable)
		j.finish(Failed)
		return
	}

	limits, err := handle.FetchLightningLimits(ctx)
	if err != nil {
		j.fail(ctx, req.ReplyURL, fmt.Sprintf("failed to fetch limits: %v", err))
		return
	}

	amountSat := req.AmountMsat / 1000
	if req.AmountMsat == 0 || amountSat < limits.Receive.MinSat || amountSat > limits.Receive.MaxSat {
		j.fail(ctx, req.ReplyURL, fmt.Sprintf("%v: invalid amount requested %d", ErrInvalidAmount, req.AmountMsat))
		return
	}

	if len(req.Comment) > CommentMaxLength {
		j.fail(ctx, req.ReplyURL, "comment is too long")
		return
	}

	prepared, err := handle.PrepareReceivePayment(ctx, &wallet.PrepareReceiveRequest{
		Method:    wallet.Bolt11Invoice,
		AmountSat: amountSat,
	})
	if err != nil {
		j.fail(ctx, req.ReplyURL, fmt.Sprintf("failed to prepare receive: %v", err))
		return
	}

	received, err := handle.ReceivePayment(ctx, &wallet.ReceivePaymentRequest{
		Prepare:            prepared,
		Description:        metadataString(j.deps.payLabel()),
		UseDescriptionHash: true,
		PayerNote:          req.Comment,
	})
	if err != nil {
		j.fail(ctx, req.ReplyURL, fmt.Sprintf("failed to receive payment: %v", err))
		return
	}

	verify := j.verifyURL(ctx, handle, req.VerifyURL, received.Destination)

	ok := j.replyJSON(ctx, req.ReplyURL, lnurlPayInvoiceResponse{
		Pr:     received.Destination,
		Routes: []string{},
		Verify: verify,
	}, 0)

	if ok {
		j.notifyOnce(titleLnurlPayInvoice, "", notify.ThreadReplaceable)
	} else {
		j.notifyOnce(titleLnurlPayFailure, "", notify.ThreadReplaceable)
	}

	if ok && req.Nostr != "" && j.trackZap(ctx, handle, req.Nostr, received.Destination) {
		return
	}
	j.finish(Completed)
}

// trackZap hands the zap request to the NWC plugin and reports whether the
// job now waits for the published receipt. The invoice was already delivered
// so every failure path just completes the job.
func (j *lnurlPayInvoiceJob) trackZap(ctx context.Context, handle wallet.APICalls, zapRequest, invoice string) bool {
	nwc, err := j.deps.Plugins.Nwc(handle, j.deps.PluginConfigs)
	if err != nil {
		glog.Warningf("Failed to start NWC service: %v", err)
		return false
	}
	if nwc == nil {
		return false
	}

	j.mu.Lock()
	j.zapInvoice = invoice
	j.mu.Unlock()

	if err := nwc.AddEventListener(j); err != nil {
		glog.Warningf("Failed to listen on NWC service: %v", err)
		return false
	}
	if err := nwc.TrackZap(invoice, zapRequest); err != nil {
		glog.Warningf("Failed to track zap: %v", err)
		return false
	}

	glog.Info("Tracking zap receipt for created invoice")
	j.setState(AwaitingEvent)

	go func() {
		timer := time.NewTimer(j.zapTimeout)
		defer timer.Stop()
		select {
		case <-j.Done():
		case <-ctx.Done():
		case <-timer.C:
			glog.Warning("Gave up waiting for the zap receipt")
			j.finish(Completed)
		}
	}()
	return true
}

// verifyURL fills the LUD-21 verify template with the payment hash of the
// created invoice. Best effort, a parse failure just drops the field.
func (j *lnurlPayInvoiceJob) verifyURL(ctx context.Context, handle wallet.APICalls, template, destination string) *string {
	if template == "" {
		return nil
	}

	input, err := handle.ParseInput(ctx, destination)
	if err != nil {
		glog.Warningf("Failed to parse destination: %v", err)
		return nil
	}

	if bolt11, ok := input.(wallet.Bolt11Input); ok {
		verify := strings.Replace(template, "{payment_hash}", bolt11.PaymentHash, 1)
		return &verify
	}
	return nil
}

func (j *lnurlPayInvoiceJob) fail(ctx context.Context, replyURL, reason string) {
	glog.Warningf("Failed to process lnurl invoice: %s", reason)
	j.replyError(ctx, replyURL, reason)
	j.notifyOnce(titleLnurlPayFailure, "", notify.ThreadReplaceable)
	j.finish(Failed)
}

func (j *lnurlPayInvoiceJob) OnEvent(e wallet.Event) {}

func (j *lnurlPayInvoiceJob) OnNwcEvent(e wallet.NwcEvent) {
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

	glog.Info("Zap receipt published for created invoice")
	j.finish(Completed)
}

func (j *lnurlPayInvoiceJob) OnShutdown() {
	j.notifyOnce(titleLnurlPayFailure, "", notify.ThreadReplaceable)
	j.finish(ShutDown)
}
