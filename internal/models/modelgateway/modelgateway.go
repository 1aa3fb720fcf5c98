// Package modelgateway provides wire types of the payment gateway orders API.
package modelgateway

type (
	OrderRequest struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Receipt  string `json:"receipt"`
	}
	Order struct {
		ID         string `json:"id"`
		Entity     string `json:"entity"`
		Amount     int64  `json:"amount"`
		AmountPaid int64  `json:"amount_paid"`
		AmountDue  int64  `json:"amount_due"`
		Currency   string `json:"currency"`
		Receipt    string `json:"receipt"`
		Status     string `json:"status"`
		Attempts   int    `json:"attempts"`
		CreatedAt  int64  `json:"created_at"`
	}
	ErrorDetail struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	}
	ErrorResponse struct {
		Error ErrorDetail `json:"error"`
	}
	// Payment is what the hosted checkout hands back to the browser on completion.
	Payment struct {
		RazorpayPaymentID string `json:"razorpay_payment_id"`
		RazorpayOrderID   string `json:"razorpay_order_id"`
		RazorpaySignature string `json:"razorpay_signature"`
	}
)
