package account

import "encoding/json"

// AmountRequest is the body of a deposit, withdrawal or loan request.
// Amount may be a JSON number or a decimal string.
type AmountRequest struct {
	Amount   json.Number `json:"amount" validate:"required"`
	Currency string      `json:"currency" validate:"omitempty,len=3,uppercase"`
}

// TransferRequest is the body of a transfer.
type TransferRequest struct {
	ToAccount string      `json:"to_account" validate:"required,numeric"`
	Amount    json.Number `json:"amount" validate:"required"`
	Currency  string      `json:"currency" validate:"omitempty,len=3,uppercase"`
}
