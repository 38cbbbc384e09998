package jobs

// User visible notification wording
const (
	titleInvoiceRequest        = "Fetching Invoice"
	titleInvoiceRequestFailure = "Invoice Request Failed"
	titleLnurlPayInfo          = "Retrieving Payment Information"
	titleLnurlPayInvoice       = "Fetching Invoice"
	titleLnurlPayFailure       = "Receive Payment Failed"
	titleLnurlPayVerify        = "Verifying Payment"
	titleLnurlPayVerifyFailure = "Payment Verification Failed"

	titlePaymentReceived = "Payment Received"
	textPaymentReceived  = "Received %d sats"
	titlePaymentSent     = "Payment Sent"
	textPaymentSent      = "Sent %d sats"

	titleFeeAcceptance = "Payment requires fee acceptance"
	textFeeAcceptance  = "Tap to review updated fees"

	titlePaymentPending = "Payment Pending"
	textPaymentPending  = "Tap to complete payment"

	titleNwcSuccess = "%s Successful"
	titleNwcFailure = "Wallet Connect Failed"
)
