package events

// Evento publicado no tópico "bet_placed" para cada aposta aceita
type BetPlaced struct {
	BetID        string `json:"bet_id"`
	SubmissionID string `json:"submission_id"`
	UserID       string `json:"user_id"`
	MarketID     int64  `json:"market_id"`
	Phase        string `json:"phase"`
	BetType      string `json:"bet_type"`
	Outcome      string `json:"outcome"`
	Stake        int64  `json:"stake"`
	Rate         string `json:"rate"` // decimal em texto, sem perda
	Payout       int64  `json:"payout"`
	DrawDate     string `json:"draw_date"`
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
