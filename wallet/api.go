package wallet

import (
	"context"
	"fmt"
)

// PaymentState enum
type PaymentState int

// PaymentStates
const (
	PaymentCreated PaymentState = iota
	PaymentPending
	PaymentComplete
	PaymentFailed
	PaymentTimedOut
	PaymentRefundable
	PaymentRefundPending
	PaymentWaitingFeeAcceptance
)

func (s PaymentState) String() string {
	switch s {
	case PaymentCreated:
		return "created"
	case PaymentPending:
		return "pending"
	case PaymentComplete:
		return "complete"
	case PaymentFailed:
		return "failed"
	case PaymentTimedOut:
		return "timedout"
	case PaymentRefundable:
		return "refundable"
	case PaymentRefundPending:
		return "refundpending"
	case PaymentWaitingFeeAcceptance:
		return "waitingfeeacceptance"
	}
	return "unknown"
}

// PaymentType enum
type PaymentType int

// PaymentTypes
const (
	PaymentReceive PaymentType = iota
	PaymentSend
)

// PaymentDetails is the tagged union of swap-kind specific payment data
type PaymentDetails interface {
	paymentDetails()
}

// LightningDetails - details of a Lightning swap payment
type LightningDetails struct {
	SwapID      string
	Invoice     string
	PaymentHash string
	Preimage    string
	ClaimTxID   string
}

// BitcoinDetails - details of an onchain Bitcoin swap payment
type BitcoinDetails struct {
	SwapID    string
	ClaimTxID string
}

// LiquidDetails - details of a direct Liquid payment (no swap)
type LiquidDetails struct {
	Destination string
}

func (LightningDetails) paymentDetails() {}
func (BitcoinDetails) paymentDetails()   {}
func (LiquidDetails) paymentDetails()    {}

// Payment struct
type Payment struct {
	TxID      string
	AmountSat uint64
	Status    PaymentState
	Type      PaymentType
	Details   PaymentDetails
}

// SwapID returns the swap identifier of a payment or empty string when the
// payment is not swap based.
func (p *Payment) SwapID() string {
	switch d := p.Details.(type) {
	case LightningDetails:
		return d.SwapID
	case BitcoinDetails:
		return d.SwapID
	}
	return ""
}

// ClaimTxID returns the claim transaction id of a swap payment. A non-empty
// value means the claim was already broadcast.
func (p *Payment) ClaimTxID() string {
	switch d := p.Details.(type) {
	case LightningDetails:
		return d.ClaimTxID
	case BitcoinDetails:
		return d.ClaimTxID
	}
	return ""
}

// Invoice returns the bolt11 invoice of a Lightning swap payment
func (p *Payment) Invoice() string {
	if d, ok := p.Details.(LightningDetails); ok {
		return d.Invoice
	}
	return ""
}

// Limits struct
type Limits struct {
	MinSat uint64
	MaxSat uint64
}

// LightningLimits struct
type LightningLimits struct {
	Receive Limits
	Send    Limits
}

// CreateBolt12InvoiceRequest struct
type CreateBolt12InvoiceRequest struct {
	Offer          string
	InvoiceRequest string
}

// CreateBolt12InvoiceResponse struct
type CreateBolt12InvoiceResponse struct {
	Invoice string
}

// PaymentMethod enum
type PaymentMethod int

// PaymentMethods
const (
	Bolt11Invoice PaymentMethod = iota
	Bolt12Offer
	BitcoinAddress
	LiquidAddress
)

// PrepareReceiveRequest struct
type PrepareReceiveRequest struct {
	Method    PaymentMethod
	AmountSat uint64
}

// PrepareReceiveResponse struct
type PrepareReceiveResponse struct {
	Method    PaymentMethod
	AmountSat uint64
	FeesSat   uint64
}

// ReceivePaymentRequest struct
type ReceivePaymentRequest struct {
	Prepare *PrepareReceiveResponse
	// Description is attached to the invoice, hashed when UseDescriptionHash is set
	Description        string
	UseDescriptionHash bool
	PayerNote          string
}

// ReceivePaymentResponse struct
type ReceivePaymentResponse struct {
	Destination string
}

// InputType is the tagged union returned by ParseInput
type InputType interface {
	inputType()
}

// Bolt11Input - the parsed input is a BOLT11 invoice
type Bolt11Input struct {
	Bolt11      string
	PaymentHash string
}

// Bolt12OfferInput - the parsed input is a BOLT12 offer
type Bolt12OfferInput struct {
	Offer string
}

func (Bolt11Input) inputType()      {}
func (Bolt12OfferInput) inputType() {}

// Config struct
type Config struct {
	APIKey     string `hash:"string"`
	Network    string `hash:"string"`
	WorkingDir string `hash:"string"`
}

// ConnectRequest struct
type ConnectRequest struct {
	Config   Config
	Mnemonic string
}

// APICalls is the interface towards the wallet SDK handle
type APICalls interface {
	// AddEventListener installs the single event forwarding target of the handle
	AddEventListener(listener EventListener) error
	CreateBolt12Invoice(ctx context.Context, req *CreateBolt12InvoiceRequest) (*CreateBolt12InvoiceResponse, error)
	FetchLightningLimits(ctx context.Context) (*LightningLimits, error)
	PrepareReceivePayment(ctx context.Context, req *PrepareReceiveRequest) (*PrepareReceiveResponse, error)
	ReceivePayment(ctx context.Context, req *ReceivePaymentRequest) (*ReceivePaymentResponse, error)
	// GetPaymentByHash returns nil when no payment matches the hash
	GetPaymentByHash(ctx context.Context, paymentHash string) (*Payment, error)
	// GetPaymentBySwapID returns nil when no payment matches the swap id
	GetPaymentBySwapID(ctx context.Context, swapID string) (*Payment, error)
	ParseInput(ctx context.Context, input string) (InputType, error)
	UseNwcPlugin(cfg *NwcConfig) (NwcService, error)
	Disconnect() error
}

// NewAPICall is the signature of the function used to connect to the SDK
type NewAPICall func(ctx context.Context, req ConnectRequest) (APICalls, error)

// ErrPaymentNotFound is returned by helpers when a payment lookup yields nothing
var ErrPaymentNotFound = fmt.Errorf("payment not found")
