package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/matka-exchange/internal/matka/bet"
	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/matka/settlement"
	"github.com/radieske/matka-exchange/internal/shared/db/dbtest"
)

const drawDate = "2026-10-18"

func seedMarket(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.QueryRow(`
		INSERT INTO markets (title, slug, open_time, close_time, bet_types)
		VALUES ('Kalyan', 'kalyan', '10:00', '12:00', '{}') RETURNING id`).Scan(&id))
	return id
}

func seedBet(t *testing.T, db *sql.DB, marketID int64, phase market.Phase, betType, outcome string, stake, payout int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`
		INSERT INTO matka_bets (id, submission_id, bettor_id, market_id, phase, bet_type, outcome,
		                        stake, rate, payout, liability, draw_date, placed_at)
		VALUES ($1, $2, 'u1', $3, $4, $5, $6, $7, 9.5, $8, $9, $10, NOW())`,
		id, uuid.New(), marketID, string(phase), betType, outcome, stake, payout, -stake, drawDate)
	require.NoError(t, err)
	return id
}

func statusOf(t *testing.T, db *sql.DB, id uuid.UUID) bet.Status {
	t.Helper()
	var st bet.Status
	require.NoError(t, db.QueryRow(`SELECT status FROM matka_bets WHERE id = $1`, id).Scan(&st))
	return st
}

func TestPostgres_SettleDraw(t *testing.T) {
	td := dbtest.Setup(t)
	repo := NewPostgres(td.DB)
	ctx := context.Background()
	at := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)

	mID := seedMarket(t, td.DB)
	winSingle := seedBet(t, td.DB, mID, market.PhaseOpen, "single", "1", 100, 950)
	loseSingle := seedBet(t, td.DB, mID, market.PhaseOpen, "single", "2", 100, 950)
	winPatti := seedBet(t, td.DB, mID, market.PhaseOpen, "single patti", "128", 10, 1400)
	closeBet := seedBet(t, td.DB, mID, market.PhaseClose, "single", "0", 10, 95)
	jodiWin := seedBet(t, td.DB, mID, market.PhaseJodi, "jodi", "10", 10, 900)
	jodiLose := seedBet(t, td.DB, mID, market.PhaseJodi, "jodi", "11", 10, 900)

	open := settlement.Declaration{MarketID: mID, DrawDate: drawDate, Phase: market.PhaseOpen, Patti: "128", DeclaredBy: "op"}
	out, err := repo.SettleDraw(ctx, open, at)
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, "128", out.Result.OpenPatti)
	assert.Len(t, out.Settled, 3)

	assert.Equal(t, bet.StatusWon, statusOf(t, td.DB, winSingle))
	assert.Equal(t, bet.StatusLost, statusOf(t, td.DB, loseSingle))
	assert.Equal(t, bet.StatusWon, statusOf(t, td.DB, winPatti))
	assert.Equal(t, bet.StatusPlaced, statusOf(t, td.DB, closeBet))
	assert.Equal(t, bet.StatusPlaced, statusOf(t, td.DB, jodiWin), "jodi waits for both pattis")

	t.Run("redeclaring a phase changes nothing", func(t *testing.T) {
		again := open
		again.Patti = "550"
		out, err := repo.SettleDraw(ctx, again, at.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.Empty(t, out.Settled)
		assert.Equal(t, "128", out.Result.OpenPatti)
	})

	t.Run("close settles close and jodi", func(t *testing.T) {
		cl := settlement.Declaration{MarketID: mID, DrawDate: drawDate, Phase: market.PhaseClose, Patti: "550", DeclaredBy: "op"}
		out, err := repo.SettleDraw(ctx, cl, at.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, out.Applied)
		assert.Len(t, out.Settled, 3)

		assert.Equal(t, bet.StatusWon, statusOf(t, td.DB, closeBet))
		assert.Equal(t, bet.StatusWon, statusOf(t, td.DB, jodiWin))
		assert.Equal(t, bet.StatusLost, statusOf(t, td.DB, jodiLose))
	})

	t.Run("winners are credited once", func(t *testing.T) {
		pending, err := repo.PendingCredits(ctx, mID, drawDate)
		require.NoError(t, err)
		assert.Len(t, pending, 4)

		require.NoError(t, repo.MarkCredited(ctx, winSingle.String(), at))
		pending, err = repo.PendingCredits(ctx, mID, drawDate)
		require.NoError(t, err)
		assert.Len(t, pending, 3)
		for _, b := range pending {
			assert.NotEqual(t, winSingle, b.ID)
			assert.Equal(t, bet.StatusWon, b.Status)
		}
	})
}

func TestPostgres_SettleDrawSkipsVoid(t *testing.T) {
	td := dbtest.Setup(t)
	repo := NewPostgres(td.DB)
	ctx := context.Background()

	mID := seedMarket(t, td.DB)
	voided := seedBet(t, td.DB, mID, market.PhaseOpen, "single", "1", 100, 950)
	_, err := td.DB.Exec(`UPDATE matka_bets SET status = 'VOID' WHERE id = $1`, voided)
	require.NoError(t, err)

	out, err := repo.SettleDraw(ctx, settlement.Declaration{
		MarketID: mID, DrawDate: drawDate, Phase: market.PhaseOpen, Patti: "128",
	}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, out.Settled)
	assert.Equal(t, bet.StatusVoid, statusOf(t, td.DB, voided))
}

func TestPostgres_RedeclarationSettlesLeftovers(t *testing.T) {
	td := dbtest.Setup(t)
	repo := NewPostgres(td.DB)
	ctx := context.Background()
	at := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)

	mID := seedMarket(t, td.DB)
	open := settlement.Declaration{MarketID: mID, DrawDate: drawDate, Phase: market.PhaseOpen, Patti: "128", DeclaredBy: "op"}
	_, err := repo.SettleDraw(ctx, open, at)
	require.NoError(t, err)

	// apostas que ficaram PLACED depois da declaração (ex.: gravadas por uma réplica atrasada)
	late := seedBet(t, td.DB, mID, market.PhaseOpen, "single", "1", 100, 950)
	lateLoser := seedBet(t, td.DB, mID, market.PhaseOpen, "single", "5", 100, 950)

	again := open
	again.Patti = "550"
	out, err := repo.SettleDraw(ctx, again, at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, "128", out.Result.OpenPatti)
	require.Len(t, out.Settled, 2)

	// decidido pela patti gravada (ank 1), não pela redeclarada
	assert.Equal(t, bet.StatusWon, statusOf(t, td.DB, late))
	assert.Equal(t, bet.StatusLost, statusOf(t, td.DB, lateLoser))

	pending, err := repo.PendingCredits(ctx, mID, drawDate)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, late, pending[0].ID)
}

func TestPostgres_DeclaredPhaseLeavesNoPlacedBets(t *testing.T) {
	td := dbtest.Setup(t)
	repo := NewPostgres(td.DB)
	ctx := context.Background()
	at := time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC)

	mID := seedMarket(t, td.DB)
	outcomes := []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
	for _, o := range outcomes {
		seedBet(t, td.DB, mID, market.PhaseOpen, "single", o, 10, 95)
		seedBet(t, td.DB, mID, market.PhaseClose, "single", o, 10, 95)
		seedBet(t, td.DB, mID, market.PhaseJodi, "jodi", "1"+o, 10, 900)
	}

	for _, d := range []settlement.Declaration{
		{MarketID: mID, DrawDate: drawDate, Phase: market.PhaseOpen, Patti: "128"},
		{MarketID: mID, DrawDate: drawDate, Phase: market.PhaseClose, Patti: "370"},
	} {
		_, err := repo.SettleDraw(ctx, d, at)
		require.NoError(t, err)
	}

	var placed, won int
	require.NoError(t, td.DB.QueryRow(`
		SELECT COUNT(*) FILTER (WHERE status = 'PLACED'), COUNT(*) FILTER (WHERE status = 'WON')
		  FROM matka_bets WHERE market_id = $1`, mID).Scan(&placed, &won))
	assert.Zero(t, placed)
	// ank OPEN 1, ank CLOSE 0, jodi 10
	assert.Equal(t, 3, won)
}

func TestPostgres_RejectsNonPositiveStake(t *testing.T) {
	td := dbtest.Setup(t)
	mID := seedMarket(t, td.DB)

	_, err := td.DB.Exec(`
		INSERT INTO matka_bets (id, submission_id, bettor_id, market_id, phase, bet_type, outcome,
		                        stake, rate, payout, liability, draw_date, placed_at)
		VALUES ($1, $2, 'u1', $3, 'OPEN', 'single', '1', 0, 9.5, 0, 0, $4, NOW())`,
		uuid.New(), uuid.New(), mID, drawDate)
	require.Error(t, err)
}
