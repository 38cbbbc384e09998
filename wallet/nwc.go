package wallet

import "context"

// NwcConfig enables the Nostr Wallet Connect plugin when present
type NwcConfig struct {
	RelayURL  string
	SecretKey string
}

// NwcEventDetails is the tagged union of NWC event kinds
type NwcEventDetails interface {
	nwcEventDetails()
}

// NwcGetBalance struct
type NwcGetBalance struct{}

// NwcListTransactions struct
type NwcListTransactions struct{}

// NwcPayInvoice struct
type NwcPayInvoice struct {
	Invoice string
}

// NwcMakeInvoice struct
type NwcMakeInvoice struct {
	Invoice string
}

// NwcGetInfo struct
type NwcGetInfo struct{}

// NwcZapReceived - a zap receipt was published for the invoice
type NwcZapReceived struct {
	Invoice string
}

// NwcUnknown - an event kind the agent does not act on
type NwcUnknown struct {
	Method string
}

func (NwcGetBalance) nwcEventDetails()        {}
func (NwcListTransactions) nwcEventDetails()  {}
func (NwcPayInvoice) nwcEventDetails()        {}
func (NwcMakeInvoice) nwcEventDetails()       {}
func (NwcGetInfo) nwcEventDetails()           {}
func (NwcZapReceived) nwcEventDetails()       {}
func (NwcUnknown) nwcEventDetails()           {}

// NwcEvent struct
type NwcEvent struct {
	EventID string
	Details NwcEventDetails
}

// NwcEventListener receives NWC plugin events
type NwcEventListener interface {
	OnNwcEvent(e NwcEvent)
}

// NwcService is the interface towards the optional NWC plugin
type NwcService interface {
	AddEventListener(listener NwcEventListener) error
	// HandleEvent asks the plugin to process the referenced relay event
	HandleEvent(ctx context.Context, eventID string) error
	// IsZap reports whether the invoice was created for a zap request
	IsZap(invoice string) (bool, error)
	// TrackZap asks the plugin to publish a zap receipt once the invoice
	// settles. The NwcZapReceived event confirms publication.
	TrackZap(invoice, zapRequest string) error
	Stop() error
}
