package admin

import "encoding/json"

// ApproveLoanRequest optionally overrides the credited amount.
type ApproveLoanRequest struct {
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency" validate:"omitempty,len=3,uppercase"`
}

// PostingRequest is an administrative ledger entry. Amount is a positive
// magnitude; the sign comes from Kind. Transfers and loan payments have their
// own workflows and cannot be posted here.
type PostingRequest struct {
	Kind     string      `json:"kind" validate:"required,oneof=deposit withdrawal"`
	Amount   json.Number `json:"amount" validate:"required"`
	Currency string      `json:"currency" validate:"omitempty,len=3,uppercase"`
}
