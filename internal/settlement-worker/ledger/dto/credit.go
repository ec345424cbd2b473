package dto

// CreditRequest credita o payout de uma aposta vencedora.
// ExternalRef é o id da aposta; o ledger ignora refs repetidas.
type CreditRequest struct {
	UserID      string `json:"userId"`
	Amount      int64  `json:"amount"`
	ExternalRef string `json:"external_ref"`
}

const (
	StatusCredited  = "CREDITED"
	StatusDuplicate = "DUPLICATE"
)

type CreditResponse struct {
	EntryID string `json:"entry_id"`
	Status  string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
