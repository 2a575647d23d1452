package models

import "time"

// PaymentOrder is the scannable payment-link payload generated for the
// premium plan. Confirmation is user-asserted; no gateway callback verifies
// it.
type PaymentOrder struct {
	Reference string    `json:"reference"`
	PayeeVPA  string    `json:"payeeVpa"`
	PayeeName string    `json:"payeeName"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	Link      string    `json:"link"` // encoded into the QR code by the client
	CreatedAt time.Time `json:"createdAt"`
}
