package dto

type WebhookPayment struct {
	ID          string `json:"id"`
	PixQrCodeID string `json:"pixQrCodeId"`
}

type WebhookRequest struct {
	Event   string         `json:"event"`
	Payment WebhookPayment `json:"payment"`
}

type WebhookTransactionResult struct {
	TransactionID string `json:"transactionId"`
	UserEmail     string `json:"userEmail"`
	PlanID        string `json:"planId"`
	UserUpdated   bool   `json:"userUpdated"`
	Credited      bool   `json:"credited"`
	Detail        string `json:"detail,omitempty"`
}

type WebhookResponse struct {
	Success             bool                       `json:"success"`
	Message             string                     `json:"message"`
	PixKeyID            string                     `json:"pixKeyId,omitempty"`
	UpdatedTransactions int                        `json:"updatedTransactions"`
	Results             []WebhookTransactionResult `json:"results,omitempty"`
}
