package events

import "time"

// Evento emitido pelo settlement-worker após liquidar uma aposta.
type BetSettled struct {
	BetID       string    `json:"bet_id"`
	UserID      string    `json:"user_id"`
	MarketID    int64     `json:"market_id"`
	Status      string    `json:"status"` // "WON" | "LOST"
	Payout      int64     `json:"payout"` // creditado só se WON
	ExternalRef string    `json:"external_ref,omitempty"`
	Ts          time.Time `json:"ts"`
}
