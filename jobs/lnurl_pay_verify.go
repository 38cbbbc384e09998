package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/golang/glog"

	"github.com/lnpush/agent/notify"
	"github.com/lnpush/agent/reply"
	"github.com/lnpush/agent/wallet"
)

type lnurlVerifyRequest struct {
	PaymentHash string `json:"payment_hash"`
	ReplyURL    string `json:"reply_url"`
}

// lnurlPayVerifyResponse follows the LUD-21 verify specification:
// https://github.com/lnurl/luds/blob/luds/21.md
type lnurlPayVerifyResponse struct {
	Status   string  `json:"status"`
	Settled  bool    `json:"settled"`
	Preimage *string `json:"preimage"`
	Pr       string  `json:"pr"`
}

// lnurlPayVerifyJob answers a LUD-21 settlement query for a Lightning
// payment. Fully synchronous.
type lnurlPayVerifyJob struct {
	*reporter
	payload string
}

func newLnurlPayVerifyJob(payload string, deps Deps) *lnurlPayVerifyJob {
	return &lnurlPayVerifyJob{reporter: newReporter(TypeLnurlPayVerify, deps), payload: payload}
}

// settled decides whether the preimage may be released. A pending payment
// whose claim transaction is already broadcast counts as settled: the funds
// are paid via Lightning or MRH even though the swap is not yet confirmed.
func settled(p *wallet.Payment, details wallet.LightningDetails) bool {
	switch p.Status {
	case wallet.PaymentComplete:
		return true
	case wallet.PaymentPending:
		return details.ClaimTxID != ""
	}
	return false
}

func (j *lnurlPayVerifyJob) Start(ctx context.Context, handle wallet.APICalls) {
	defer j.deps.Metrics.JobTimer(TypeLnurlPayVerify)()
	j.setState(Running)

	var req lnurlVerifyRequest
	if err := json.Unmarshal([]byte(j.payload), &req); err != nil || req.PaymentHash == "" || req.ReplyURL == "" {
		glog.Warningf("Bad lnurl verify payload %s: %v", truncatePayload(j.payload), err)
		j.notifyOnce(titleLnurlPayVerifyFailure, "", notify.ThreadReplaceable)
		j.finish(Failed)
		return
	}

	payment, err := handle.GetPaymentByHash(ctx, req.PaymentHash)
	if err != nil {
		j.fail(ctx, req.ReplyURL, fmt.Sprintf("failed to get payment: %v", err))
		return
	}
	if payment == nil {
		j.fail(ctx, req.ReplyURL, ErrNotFound.Error())
		return
	}

	details, ok := payment.Details.(wallet.LightningDetails)
	if !ok {
		j.fail(ctx, req.ReplyURL, ErrNotFound.Error())
		return
	}

	resp := lnurlPayVerifyResponse{
		Status:  "OK",
		Settled: settled(payment, details),
		Pr:      details.Invoice,
	}
	if resp.Settled {
		preimage := details.Preimage
		resp.Preimage = &preimage
	}

	maxAge := reply.CacheMaxAgeThreeSeconds
	if resp.Settled {
		maxAge = reply.CacheMaxAgeWeek
	}

	if j.replyJSON(ctx, req.ReplyURL, resp, maxAge) {
		j.notifyOnce(titleLnurlPayVerify, "", notify.ThreadReplaceable)
	} else {
		j.notifyOnce(titleLnurlPayVerifyFailure, "", notify.ThreadReplaceable)
	}
	j.finish(Completed)
}

func (j *lnurlPayVerifyJob) fail(ctx context.Context, replyURL, reason string) {
	glog.Warningf("Failed to process lnurl verify: %s", reason)
	j.replyError(ctx, replyURL, reason)
	j.notifyOnce(titleLnurlPayVerifyFailure, "", notify.ThreadReplaceable)
	j.finish(Failed)
}

func (j *lnurlPayVerifyJob) OnEvent(e wallet.Event) {}

func (j *lnurlPayVerifyJob) OnShutdown() {
	j.notifyOnce(titleLnurlPayVerifyFailure, "", notify.ThreadReplaceable)
	j.finish(ShutDown)
}
