package wallet

import (
	"context"
	"fmt"
	"sync"
)

// MockAPI is a scriptable in-memory SDK handle used in tests and with the
// "mock" connector. Unset function fields fall back to canned responses.
type MockAPI struct {
	mu       sync.Mutex
	Trace    string
	listener EventListener

	CreateBolt12InvoiceFunc   func(ctx context.Context, req *CreateBolt12InvoiceRequest) (*CreateBolt12InvoiceResponse, error)
	FetchLightningLimitsFunc  func(ctx context.Context) (*LightningLimits, error)
	PrepareReceivePaymentFunc func(ctx context.Context, req *PrepareReceiveRequest) (*PrepareReceiveResponse, error)
	ReceivePaymentFunc        func(ctx context.Context, req *ReceivePaymentRequest) (*ReceivePaymentResponse, error)
	GetPaymentByHashFunc      func(ctx context.Context, paymentHash string) (*Payment, error)
	GetPaymentBySwapIDFunc    func(ctx context.Context, swapID string) (*Payment, error)
	ParseInputFunc            func(ctx context.Context, input string) (InputType, error)
	Nwc                       NwcService
}

// Compile time check for the interface
var _ APICalls = &MockAPI{}

func init() {
	// development connector, see cmd/wallet-agent --sdk
	RegisterConnector("mock", func(ctx context.Context, req ConnectRequest) (APICalls, error) {
		return &MockAPI{}, nil
	})
}

func (m *MockAPI) trace(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trace += s
}

func (m *MockAPI) AddEventListener(listener EventListener) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = listener
	return nil
}

// Emit delivers an event to the installed listener as the SDK would
func (m *MockAPI) Emit(e Event) {
	m.mu.Lock()
	listener := m.listener
	m.mu.Unlock()
	if listener != nil {
		listener.OnEvent(e)
	}
}

func (m *MockAPI) CreateBolt12Invoice(ctx context.Context, req *CreateBolt12InvoiceRequest) (*CreateBolt12InvoiceResponse, error) {
	m.trace("createbolt12invoice")
	if m.CreateBolt12InvoiceFunc != nil {
		return m.CreateBolt12InvoiceFunc(ctx, req)
	}
	return &CreateBolt12InvoiceResponse{Invoice: "lni1fake"}, nil
}

func (m *MockAPI) FetchLightningLimits(ctx context.Context) (*LightningLimits, error) {
	m.trace("fetchlightninglimits")
	if m.FetchLightningLimitsFunc != nil {
		return m.FetchLightningLimitsFunc(ctx)
	}
	return &LightningLimits{Receive: Limits{MinSat: 1000, MaxSat: 25_000_000}}, nil
}

func (m *MockAPI) PrepareReceivePayment(ctx context.Context, req *PrepareReceiveRequest) (*PrepareReceiveResponse, error) {
	m.trace(fmt.Sprintf("preparereceivepayment%d", req.AmountSat))
	if m.PrepareReceivePaymentFunc != nil {
		return m.PrepareReceivePaymentFunc(ctx, req)
	}
	return &PrepareReceiveResponse{Method: req.Method, AmountSat: req.AmountSat}, nil
}

func (m *MockAPI) ReceivePayment(ctx context.Context, req *ReceivePaymentRequest) (*ReceivePaymentResponse, error) {
	m.trace("receivepayment")
	if m.ReceivePaymentFunc != nil {
		return m.ReceivePaymentFunc(ctx, req)
	}
	return &ReceivePaymentResponse{Destination: "lnbc1fake"}, nil
}

func (m *MockAPI) GetPaymentByHash(ctx context.Context, paymentHash string) (*Payment, error) {
	m.trace("getpaymentbyhash" + paymentHash)
	if m.GetPaymentByHashFunc != nil {
		return m.GetPaymentByHashFunc(ctx, paymentHash)
	}
	return nil, nil
}

func (m *MockAPI) GetPaymentBySwapID(ctx context.Context, swapID string) (*Payment, error) {
	m.trace("getpaymentbyswapid" + swapID)
	if m.GetPaymentBySwapIDFunc != nil {
		return m.GetPaymentBySwapIDFunc(ctx, swapID)
	}
	return nil, nil
}

func (m *MockAPI) ParseInput(ctx context.Context, input string) (InputType, error) {
	m.trace("parseinput")
	if m.ParseInputFunc != nil {
		return m.ParseInputFunc(ctx, input)
	}
	return Bolt11Input{Bolt11: input, PaymentHash: HashID(input)}, nil
}

func (m *MockAPI) UseNwcPlugin(cfg *NwcConfig) (NwcService, error) {
	m.trace("usenwcplugin")
	if m.Nwc != nil {
		return m.Nwc, nil
	}
	return &MockNwcService{}, nil
}

func (m *MockAPI) Disconnect() error {
	m.trace("disconnect")
	return nil
}

// MockNwcService is the NWC plugin counterpart of MockAPI
type MockNwcService struct {
	mu       sync.Mutex
	Trace    string
	listener NwcEventListener

	HandleEventFunc func(ctx context.Context, eventID string) error
	IsZapFunc       func(invoice string) (bool, error)
	TrackZapFunc    func(invoice, zapRequest string) error
}

// Compile time check for the interface
var _ NwcService = &MockNwcService{}

func (m *MockNwcService) AddEventListener(listener NwcEventListener) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = listener
	return nil
}

// Emit delivers an NWC event to the installed listener
func (m *MockNwcService) Emit(e NwcEvent) {
	m.mu.Lock()
	listener := m.listener
	m.mu.Unlock()
	if listener != nil {
		listener.OnNwcEvent(e)
	}
}

func (m *MockNwcService) HandleEvent(ctx context.Context, eventID string) error {
	m.mu.Lock()
	m.Trace += "handleevent" + eventID
	m.mu.Unlock()
	if m.HandleEventFunc != nil {
		return m.HandleEventFunc(ctx, eventID)
	}
	return nil
}

func (m *MockNwcService) IsZap(invoice string) (bool, error) {
	m.mu.Lock()
	m.Trace += "iszap"
	m.mu.Unlock()
	if m.IsZapFunc != nil {
		return m.IsZapFunc(invoice)
	}
	return false, nil
}

func (m *MockNwcService) TrackZap(invoice, zapRequest string) error {
	m.mu.Lock()
	m.Trace += "trackzap"
	m.mu.Unlock()
	if m.TrackZapFunc != nil {
		return m.TrackZapFunc(invoice, zapRequest)
	}
	return nil
}

func (m *MockNwcService) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trace += "stop"
	return nil
}
