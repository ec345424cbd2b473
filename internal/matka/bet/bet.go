// Package bet define o registro imutável de aposta criado na admissão.
package bet

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radieske/matka-exchange/internal/matka/market"
)

// Status da aposta; WON, LOST e VOID são terminais
type Status string

const (
	StatusPlaced Status = "PLACED"
	StatusWon    Status = "WON"
	StatusLost   Status = "LOST"
	StatusVoid   Status = "VOID"
)

func (s Status) Terminal() bool { return s != StatusPlaced }

var ErrNotFound = errors.New("bet not found")

// ErrNotPlaced indica transição pedida sobre aposta já terminal
var ErrNotPlaced = errors.New("bet is not in PLACED state")

// Bet é uma aposta sobre um único resultado. Stake e payout em unidades mínimas.
type Bet struct {
	ID           uuid.UUID       `json:"id"`
	SubmissionID uuid.UUID       `json:"submissionId"`
	BettorID     string          `json:"bettorId"`
	BettorRole   string          `json:"bettorRole"`
	MarketID     int64           `json:"marketId"`
	Phase        market.Phase    `json:"phase"`
	BetType      string          `json:"betType"`
	Outcome      string          `json:"outcome"`
	Stake        int64           `json:"stake"`
	Rate         decimal.Decimal `json:"rate"`
	Payout       int64           `json:"payout"`
	Liability    int64           `json:"liability"`
	DrawDate     string          `json:"drawDate"`
	Status       Status          `json:"status"`
	PlacedAt     time.Time       `json:"placedAt"`
	SettledAt    *time.Time      `json:"settledAt,omitempty"`
}

// Payout = stake × rate, arredondado (meio para longe do zero) para unidade mínima
func Payout(stake int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(stake).Mul(rate).Round(0).IntPart()
}

// Liability é o que já fica com a banca se o resultado não sair
func Liability(stake int64) int64 { return -stake }
