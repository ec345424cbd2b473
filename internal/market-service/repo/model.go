package repo

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/matka-exchange/internal/matka/bet"
	"github.com/radieske/matka-exchange/internal/matka/market"
)

// Category agrupa mercados para exibição
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrDuplicate = errors.New("already exists")

type rowScanner interface {
	Scan(dest ...any) error
}

const marketColumns = `m.id, COALESCE(m.category_id, 0), COALESCE(c.name, ''), m.title, m.slug,
	m.open_time, m.close_time, m.bet_types, m.active, m.deleted,
	m.open_suspended, m.close_suspended, m.all_suspended, m.message,
	m.created_at, m.updated_at`

func scanMarket(r rowScanner) (*market.Market, error) {
	var (
		m        market.Market
		betTypes []byte
	)
	if err := r.Scan(&m.ID, &m.CategoryID, &m.CategoryName, &m.Title, &m.Slug,
		&m.OpenTime, &m.CloseTime, &betTypes, &m.Active, &m.Deleted,
		&m.OpenSuspended, &m.CloseSuspended, &m.AllSuspended, &m.Message,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(betTypes, &m.BetTypes); err != nil {
		return nil, fmt.Errorf("decode bet_types of market %d: %w", m.ID, err)
	}
	return &m, nil
}

const betColumns = `id, submission_id, bettor_id, bettor_role, market_id, phase, bet_type, outcome,
	stake, rate, payout, liability, draw_date::text, status, placed_at, settled_at`

func scanBet(r rowScanner) (bet.Bet, error) {
	var (
		b       bet.Bet
		settled sql.NullTime
	)
	if err := r.Scan(&b.ID, &b.SubmissionID, &b.BettorID, &b.BettorRole, &b.MarketID, &b.Phase,
		&b.BetType, &b.Outcome, &b.Stake, &b.Rate, &b.Payout, &b.Liability, &b.DrawDate,
		&b.Status, &b.PlacedAt, &settled); err != nil {
		return bet.Bet{}, err
	}
	if settled.Valid {
		at := settled.Time
		b.SettledAt = &at
	}
	return b, nil
}
