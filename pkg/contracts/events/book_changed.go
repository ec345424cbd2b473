package events

import "time"

// Notificação publicada no canal Redis "book_updates" e repassada aos websockets
type BookChanged struct {
	MarketID  int64     `json:"market_id"`
	Phase     string    `json:"phase,omitempty"`
	BetType   string    `json:"bet_type,omitempty"`
	DrawDate  string    `json:"draw_date"`
	Reason    string    `json:"reason"` // "bet_placed" | "bet_void" | "settled"
	UpdatedAt time.Time `json:"updated_at"`
}
