package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/radieske/matka-exchange/internal/matka/bet"
	"github.com/radieske/matka-exchange/internal/matka/book"
	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/matka/query"
)

// InsertBets grava todas as apostas da submissão num único INSERT
// (tudo ou nada, sem transação explícita)
func (p *Postgres) InsertBets(ctx context.Context, bets []bet.Bet) error {
	if len(bets) == 0 {
		return nil
	}
	const cols = 14
	var sb strings.Builder
	sb.WriteString(`INSERT INTO matka_bets (id, submission_id, bettor_id, bettor_role, market_id, phase,
		bet_type, outcome, stake, rate, payout, liability, draw_date, placed_at) VALUES `)
	args := make([]any, 0, len(bets)*cols)
	for i, b := range bets {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(")
		for c := 1; c <= cols; c++ {
			if c > 1 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, "$%d", i*cols+c)
		}
		sb.WriteString(")")
		args = append(args, b.ID, b.SubmissionID, b.BettorID, b.BettorRole, b.MarketID, string(b.Phase),
			b.BetType, b.Outcome, b.Stake, b.Rate, b.Payout, b.Liability, b.DrawDate, b.PlacedAt)
	}
	if _, err := p.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert %d bets: %w", len(bets), err)
	}
	return nil
}

// ListBets lista as apostas do mercado, mais recentes primeiro
func (p *Postgres) ListBets(ctx context.Context, marketID int64, f query.BetFilter) ([]bet.Bet, error) {
	q := `SELECT ` + betColumns + ` FROM matka_bets WHERE market_id = $1`
	args := []any{marketID}
	if f.BettorID != "" {
		args = append(args, f.BettorID)
		q += fmt.Sprintf(" AND bettor_id = $%d", len(args))
	}
	if f.DrawDate != "" {
		args = append(args, f.DrawDate)
		q += fmt.Sprintf(" AND draw_date = $%d", len(args))
	}
	q += " ORDER BY placed_at DESC, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bet.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// AggregateBook soma stake e payout por resultado num único SELECT,
// então a leitura vê um snapshot consistente das apostas commitadas.
func (p *Postgres) AggregateBook(ctx context.Context, marketID int64, phase market.Phase, betType, drawDate string) ([]book.Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT outcome, SUM(stake), SUM(payout)
		  FROM matka_bets
		 WHERE market_id = $1 AND phase = $2 AND bet_type = $3 AND draw_date = $4
		   AND status <> 'VOID'
		 GROUP BY outcome
		 ORDER BY outcome`, marketID, string(phase), betType, drawDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []book.Entry
	for rows.Next() {
		var e book.Entry
		if err := rows.Scan(&e.Outcome, &e.Stake, &e.Payout); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// VoidBet anula uma aposta PLACED; qualquer outro estado é terminal
func (p *Postgres) VoidBet(ctx context.Context, id uuid.UUID) (*bet.Bet, error) {
	b, err := scanBet(p.db.QueryRowContext(ctx, `
		UPDATE matka_bets SET status = 'VOID', settled_at = NOW()
		 WHERE id = $1 AND status = 'PLACED'
		RETURNING `+betColumns, id))
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var status string
	err = p.db.QueryRowContext(ctx, `SELECT status FROM matka_bets WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bet %s: %w", id, bet.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("bet %s is %s: %w", id, status, bet.ErrNotPlaced)
}
