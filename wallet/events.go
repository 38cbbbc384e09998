package wallet

// Event is the tagged union of SDK events forwarded to the active listener
type Event interface {
	event()
}

// PaymentPendingEvent struct
type PaymentPendingEvent struct {
	Payment Payment
}

// PaymentSucceededEvent struct
type PaymentSucceededEvent struct {
	Payment Payment
}

// PaymentFailedEvent struct
type PaymentFailedEvent struct {
	Payment Payment
}

// PaymentWaitingConfirmationEvent struct
type PaymentWaitingConfirmationEvent struct {
	Payment Payment
}

// PaymentWaitingFeeAcceptanceEvent struct
type PaymentWaitingFeeAcceptanceEvent struct {
	Payment Payment
}

// SyncedEvent struct
type SyncedEvent struct{}

func (PaymentPendingEvent) event()              {}
func (PaymentSucceededEvent) event()            {}
func (PaymentFailedEvent) event()               {}
func (PaymentWaitingConfirmationEvent) event()  {}
func (PaymentWaitingFeeAcceptanceEvent) event() {}
func (SyncedEvent) event()                      {}

// EventListener receives SDK events
type EventListener interface {
	OnEvent(e Event)
}
