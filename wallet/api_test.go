package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentSwapHelpers(t *testing.T) {
	lightning := &Payment{Details: LightningDetails{SwapID: "s1", ClaimTxID: "tx1"}}
	assert.Equal(t, "s1", lightning.SwapID())
	assert.Equal(t, "tx1", lightning.ClaimTxID())

	bitcoin := &Payment{Details: BitcoinDetails{SwapID: "s2"}}
	assert.Equal(t, "s2", bitcoin.SwapID())
	assert.Equal(t, "", bitcoin.ClaimTxID())

	liquid := &Payment{Details: LiquidDetails{Destination: "lq1..."}}
	assert.Equal(t, "", liquid.SwapID())
	assert.Equal(t, "", liquid.ClaimTxID())

	none := &Payment{}
	assert.Equal(t, "", none.SwapID())
}

func TestPaymentStateString(t *testing.T) {
	assert.Equal(t, "pending", PaymentPending.String())
	assert.Equal(t, "waitingfeeacceptance", PaymentWaitingFeeAcceptance.String())
	assert.Equal(t, "unknown", PaymentState(99).String())
}

func TestGetConnector(t *testing.T) {
	connect, err := GetConnector("mock")
	assert.NoError(t, err)
	assert.NotNil(t, connect)

	_, err = GetConnector("bogus")
	assert.Error(t, err)
}
