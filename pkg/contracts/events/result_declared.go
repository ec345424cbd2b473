package events

import "time"

// Evento publicado pelo market-service quando o operador declara uma patti.
// Consumido pelo settlement-worker.
type ResultDeclared struct {
	MarketID   int64     `json:"market_id"`
	DrawDate   string    `json:"draw_date"`
	Phase      string    `json:"phase"` // "OPEN" | "CLOSE"
	Patti      string    `json:"patti"`
	DeclaredBy string    `json:"declared_by"`
	Ts         time.Time `json:"ts"`
}
