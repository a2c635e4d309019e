package dto

import "time"

// PixChargeRequest carries the user's email in userId, the identity the
// frontend issues for every caller.
type PixChargeRequest struct {
	PlanID    string `json:"planId"`
	UserEmail string `json:"userId"`
}

type PixChargeResponse struct {
	Success        bool      `json:"success"`
	ID             string    `json:"id"`
	EncodedImage   string    `json:"encodedImage"`
	Payload        string    `json:"payload"`
	ExpirationDate time.Time `json:"expirationDate"`
	TransactionID  string    `json:"transactionId"`
	PlanID         string    `json:"planId"`
	PlanName       string    `json:"planName"`
	PlanPrice      int       `json:"planPrice"`
}
