// Package admission decide se uma submissão de aposta pode ser aceita agora
// e a converte em registros de aposta imutáveis.
package admission

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/internal/matka/bet"
	"github.com/radieske/matka-exchange/internal/matka/digits"
	"github.com/radieske/matka-exchange/internal/matka/errs"
	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/shared/metrics"
)

// MarketReader lê o mercado direto do storage (sem cache entre requisições)
type MarketReader interface {
	GetMarket(ctx context.Context, id int64) (*market.Market, error)
}

// BetWriter persiste todas as apostas de uma submissão numa única transação
type BetWriter interface {
	InsertBets(ctx context.Context, bets []bet.Bet) error
}

// Principal é a identidade já autenticada do apostador
type Principal struct {
	ID   string
	Role string
}

// Request é uma submissão: mesmo stake em cada resultado
type Request struct {
	MarketID int64
	Phase    market.Phase
	BetType  string
	Outcomes []string
	Stake    int64
}

type Service struct {
	log     *zap.Logger
	markets MarketReader
	bets    BetWriter
	loc     *time.Location
	timeout time.Duration
	metrics *metrics.Matka
	newID   func() uuid.UUID
}

func NewService(log *zap.Logger, markets MarketReader, bets BetWriter, loc *time.Location, timeout time.Duration, m *metrics.Matka) *Service {
	return &Service{
		log:     log,
		markets: markets,
		bets:    bets,
		loc:     loc,
		timeout: timeout,
		metrics: m,
		newID:   uuid.New,
	}
}

// PlaceBet valida a submissão em ordem fixa e grava uma aposta por resultado.
// Retorna *errs.AdmissionError em qualquer rejeição.
func (s *Service) PlaceBet(ctx context.Context, p Principal, req Request, now time.Time) ([]bet.Bet, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	bets, err := s.admit(ctx, p, req, now)
	if err != nil {
		kind := errs.KindOf(err)
		s.metrics.Rejected(string(kind))
		if kind == errs.KindTransient {
			s.log.Warn("admission transient failure",
				zap.Int64("market_id", req.MarketID),
				zap.String("bettor", p.ID),
				zap.Error(err))
		} else {
			s.log.Debug("bet rejected",
				zap.Int64("market_id", req.MarketID),
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
		return nil, err
	}
	s.metrics.BetsAccepted(len(bets))
	return bets, nil
}

func (s *Service) admit(ctx context.Context, p Principal, req Request, now time.Time) ([]bet.Bet, error) {
	m, err := s.markets.GetMarket(ctx, req.MarketID)
	if errors.Is(err, market.ErrNotFound) {
		return nil, errs.New(errs.KindMarketNotFound, "market not found", map[string]any{"marketId": req.MarketID})
	}
	if err != nil {
		return nil, errs.Transient("load market", err)
	}
	if m.Deleted {
		return nil, errs.New(errs.KindMarketNotFound, "market not found", map[string]any{"marketId": req.MarketID})
	}
	if _, ok := market.ParsePhase(string(req.Phase)); !ok {
		return nil, errs.New(errs.KindInvalidBetType, "unknown phase", map[string]any{"phase": req.Phase})
	}

	// passos 2-4: flags e corte
	if err := market.Gate(m, req.Phase, now, s.loc); err != nil {
		return nil, err
	}

	key, cfg, ok := m.BetType(req.BetType)
	if !ok {
		return nil, errs.New(errs.KindInvalidBetType, "bet type not offered by this market", map[string]any{
			"betType": req.BetType,
			"allowed": m.BetTypeKeys(),
		})
	}
	if !req.Phase.AcceptsBetType(key) {
		return nil, errs.New(errs.KindInvalidBetType, "bet type not playable in this phase", map[string]any{
			"betType": key,
			"phase":   req.Phase,
		})
	}

	// stake precisa ser positivo mesmo com minStake 0
	if req.Stake <= 0 || req.Stake < cfg.MinStake {
		return nil, errs.New(errs.KindStakeTooLow, "stake below minimum", map[string]any{
			"stake":    req.Stake,
			"minStake": cfg.MinStake,
		})
	}
	if req.Stake > cfg.MaxStake {
		return nil, errs.New(errs.KindStakeTooHigh, "stake above maximum", map[string]any{
			"stake":    req.Stake,
			"maxStake": cfg.MaxStake,
		})
	}

	if len(req.Outcomes) == 0 {
		return nil, errs.New(errs.KindInvalidOutcome, "at least one outcome required", nil)
	}
	seen := make(map[string]bool, len(req.Outcomes))
	for _, o := range req.Outcomes {
		if !digits.Contains(key, o) {
			return nil, errs.New(errs.KindInvalidOutcome, "outcome not in bet type domain", map[string]any{
				"outcome": o,
				"betType": key,
			})
		}
		if seen[o] {
			return nil, errs.New(errs.KindInvalidOutcome, "outcome repeated in submission", map[string]any{"outcome": o})
		}
		seen[o] = true
	}

	submission := s.newID()
	drawDate := market.DrawDate(now, s.loc)
	payout := bet.Payout(req.Stake, cfg.Rate)
	out := make([]bet.Bet, 0, len(req.Outcomes))
	for _, o := range req.Outcomes {
		out = append(out, bet.Bet{
			ID:           s.newID(),
			SubmissionID: submission,
			BettorID:     p.ID,
			BettorRole:   p.Role,
			MarketID:     m.ID,
			Phase:        req.Phase,
			BetType:      key,
			Outcome:      o,
			Stake:        req.Stake,
			Rate:         cfg.Rate,
			Payout:       payout,
			Liability:    bet.Liability(req.Stake),
			DrawDate:     drawDate,
			Status:       bet.StatusPlaced,
			PlacedAt:     now.UTC(),
		})
	}

	if err := s.bets.InsertBets(ctx, out); err != nil {
		return nil, errs.Transient("persist bets", err)
	}
	return out, nil
}
