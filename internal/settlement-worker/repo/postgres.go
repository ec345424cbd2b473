package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/matka-exchange/internal/matka/bet"
	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/matka/settlement"
)

// Postgres grava resultados e liquida apostas do settlement-worker
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

const betColumns = `id, submission_id, bettor_id, bettor_role, market_id, phase, bet_type, outcome,
	stake, rate, payout, liability, draw_date::text, status, placed_at, settled_at`

func scanBet(rows *sql.Rows) (bet.Bet, error) {
	var (
		b       bet.Bet
		settled sql.NullTime
	)
	if err := rows.Scan(&b.ID, &b.SubmissionID, &b.BettorID, &b.BettorRole, &b.MarketID, &b.Phase,
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

// SettleDraw grava a patti da fase e liquida, na mesma transação, as
// apostas PLACED que o resultado já permite decidir. A linha do
// resultado fica travada (FOR UPDATE) até o commit. Redeclarar não troca
// a patti, mas liquida o que ainda estiver PLACED.
func (p *Postgres) SettleDraw(ctx context.Context, d settlement.Declaration, at time.Time) (*settlement.Outcome, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO market_results (market_id, draw_date) VALUES ($1, $2)
		ON CONFLICT (market_id, draw_date) DO NOTHING`, d.MarketID, d.DrawDate); err != nil {
		return nil, fmt.Errorf("insert result row: %w", err)
	}

	r := market.DrawResult{DrawDate: d.DrawDate}
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(open_patti, ''), COALESCE(close_patti, '')
		  FROM market_results
		 WHERE market_id = $1 AND draw_date = $2
		   FOR UPDATE`, d.MarketID, d.DrawDate).Scan(&r.OpenPatti, &r.ClosePatti); err != nil {
		return nil, fmt.Errorf("lock result row: %w", err)
	}

	out := &settlement.Outcome{Result: &r}
	// só a primeira declaração grava a patti; nas seguintes vale a gravada
	if r.Patti(d.Phase) == "" {
		col, atCol := "open_patti", "open_declared_at"
		if d.Phase == market.PhaseClose {
			col, atCol = "close_patti", "close_declared_at"
			r.ClosePatti = d.Patti
		} else {
			r.OpenPatti = d.Patti
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE market_results SET %s = $3, %s = $4, declared_by = $5
			 WHERE market_id = $1 AND draw_date = $2`, col, atCol),
			d.MarketID, d.DrawDate, d.Patti, at, d.DeclaredBy); err != nil {
			return nil, fmt.Errorf("store result: %w", err)
		}
		out.Applied = true
	}

	phases := []string{string(d.Phase)}
	if _, ready := r.Jodi(); ready {
		phases = append(phases, string(market.PhaseJodi))
	}
	rows, err := tx.QueryContext(ctx, `
		SELECT `+betColumns+`
		  FROM matka_bets
		 WHERE market_id = $1 AND draw_date = $2 AND phase = ANY($3) AND status = 'PLACED'
		 ORDER BY placed_at, id
		   FOR UPDATE`, d.MarketID, d.DrawDate, pq.Array(phases))
	if err != nil {
		return nil, fmt.Errorf("select placed bets: %w", err)
	}
	var pending []bet.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		pending = append(pending, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byStatus := map[bet.Status][]uuid.UUID{}
	for _, b := range pending {
		st, ok := settlement.Decide(b, &r)
		if !ok {
			continue
		}
		b.Status = st
		settledAt := at
		b.SettledAt = &settledAt
		byStatus[st] = append(byStatus[st], b.ID)
		out.Settled = append(out.Settled, b)
	}
	for st, ids := range byStatus {
		if _, err := tx.ExecContext(ctx, `
			UPDATE matka_bets SET status = $1, settled_at = $2
			 WHERE id = ANY($3::uuid[]) AND status = 'PLACED'`,
			string(st), at, pq.Array(uuidStrings(ids))); err != nil {
			return nil, fmt.Errorf("mark %s: %w", st, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// PendingCredits lista as apostas WON do dia ainda sem crédito no ledger
func (p *Postgres) PendingCredits(ctx context.Context, marketID int64, drawDate string) ([]bet.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+betColumns+`
		  FROM matka_bets
		 WHERE market_id = $1 AND draw_date = $2 AND status = 'WON' AND credited_at IS NULL
		 ORDER BY settled_at, id`, marketID, drawDate)
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

func (p *Postgres) MarkCredited(ctx context.Context, betID string, at time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE matka_bets SET credited_at = $2 WHERE id = $1 AND credited_at IS NULL`, betID, at)
	return err
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
