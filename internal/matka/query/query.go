// Package query formata o lado de leitura: estado dos mercados no fuso do
// chamador e resumos de apostas.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/matka-exchange/internal/matka/bet"
	"github.com/radieske/matka-exchange/internal/matka/errs"
	"github.com/radieske/matka-exchange/internal/matka/market"
)

type MarketReader interface {
	GetMarket(ctx context.Context, id int64) (*market.Market, error)
	// ListMarkets retorna mercados não excluídos, por id
	ListMarkets(ctx context.Context) ([]*market.Market, error)
}

type BetFilter struct {
	BettorID string
	DrawDate string
	Limit    int
}

type BetReader interface {
	ListBets(ctx context.Context, marketID int64, f BetFilter) ([]bet.Bet, error)
}

// PhaseState é o corte resolvido de uma fase no fuso do chamador
type PhaseState struct {
	Phase          market.Phase `json:"phase"`
	Cutoff         time.Time    `json:"cutoff"`
	OpenForBetting bool         `json:"openForBetting"`
	Reason         errs.Kind    `json:"reason,omitempty"`
}

type MarketState struct {
	ID             int64                           `json:"id"`
	CategoryID     int64                           `json:"categoryId"`
	CategoryName   string                          `json:"categoryName,omitempty"`
	Title          string                          `json:"title"`
	Slug           string                          `json:"slug"`
	OpenTime       string                          `json:"openTime"`
	CloseTime      string                          `json:"closeTime"`
	Timezone       string                          `json:"timezone"`
	DrawDate       string                          `json:"drawDate"`
	Phases         []PhaseState                    `json:"phases"`
	BetTypes       map[string]market.BetTypeConfig `json:"betTypes"`
	Active         bool                            `json:"active"`
	OpenSuspended  bool                            `json:"openSuspended"`
	CloseSuspended bool                            `json:"closeSuspended"`
	AllSuspended   bool                            `json:"allSuspended"`
	Message        string                          `json:"message,omitempty"`
	Today          *market.DrawResult              `json:"today,omitempty"`
	Yesterday      *market.DrawResult              `json:"yesterday,omitempty"`
}

// BetSummary é a visão de auditoria de uma aposta (com a taxa da admissão)
type BetSummary struct {
	ID           string       `json:"id"`
	SubmissionID string       `json:"submissionId"`
	BettorID     string       `json:"bettorId"`
	Phase        market.Phase `json:"phase"`
	BetType      string       `json:"betType"`
	Outcome      string       `json:"outcome"`
	Stake        int64        `json:"stake"`
	Rate         string       `json:"rate"`
	Payout       int64        `json:"payout"`
	Liability    int64        `json:"liability"`
	DrawDate     string       `json:"drawDate"`
	Status       bet.Status   `json:"status"`
	PlacedAt     time.Time    `json:"placedAt"`
	SettledAt    *time.Time   `json:"settledAt,omitempty"`
}

type Service struct {
	markets MarketReader
	bets    BetReader
	loc     *time.Location
}

func NewService(markets MarketReader, bets BetReader, loc *time.Location) *Service {
	return &Service{markets: markets, bets: bets, loc: loc}
}

// Timezone resolve o fuso pedido; vazio usa o de referência
func (s *Service) Timezone(name string) (*time.Location, error) {
	if name == "" {
		return s.loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

func (s *Service) MarketState(ctx context.Context, id int64, tz *time.Location, now time.Time) (*MarketState, error) {
	m, err := s.markets.GetMarket(ctx, id)
	if errors.Is(err, market.ErrNotFound) || (err == nil && m.Deleted) {
		return nil, errs.New(errs.KindMarketNotFound, "market not found", map[string]any{"marketId": id})
	}
	if err != nil {
		return nil, errs.Transient("load market", err)
	}
	return s.state(m, tz, now), nil
}

func (s *Service) ListMarkets(ctx context.Context, tz *time.Location, now time.Time) ([]MarketState, error) {
	list, err := s.markets.ListMarkets(ctx)
	if err != nil {
		return nil, errs.Transient("list markets", err)
	}
	out := make([]MarketState, 0, len(list))
	for _, m := range list {
		if m.Deleted || !m.Active {
			continue
		}
		out = append(out, *s.state(m, tz, now))
	}
	return out, nil
}

func (s *Service) state(m *market.Market, tz *time.Location, now time.Time) *MarketState {
	st := &MarketState{
		ID:             m.ID,
		CategoryID:     m.CategoryID,
		CategoryName:   m.CategoryName,
		Title:          m.Title,
		Slug:           m.Slug,
		OpenTime:       m.OpenTime,
		CloseTime:      m.CloseTime,
		Timezone:       tz.String(),
		DrawDate:       market.DrawDate(now, s.loc),
		BetTypes:       m.BetTypes,
		Active:         m.Active,
		OpenSuspended:  m.OpenSuspended,
		CloseSuspended: m.CloseSuspended,
		AllSuspended:   m.AllSuspended,
		Message:        m.Message,
		Today:          m.Today,
		Yesterday:      m.Yesterday,
	}

	cut, err := market.ResolveCutoffs(m, market.ReferenceDate(now, s.loc), s.loc)
	if err != nil {
		// horário inválido: mostra as fases fechadas
		for _, p := range []market.Phase{market.PhaseOpen, market.PhaseClose, market.PhaseJodi} {
			st.Phases = append(st.Phases, PhaseState{Phase: p, Reason: errs.KindPhaseClosed})
		}
		return st
	}
	st.OpenTime = cut.Open.In(tz).Format("15:04")
	st.CloseTime = cut.Close.In(tz).Format("15:04")

	for _, ph := range []struct {
		phase  market.Phase
		cutoff time.Time
	}{
		{market.PhaseOpen, cut.Open},
		{market.PhaseClose, cut.Close},
		{market.PhaseJodi, cut.Jodi},
	} {
		gateErr := market.Gate(m, ph.phase, now, s.loc)
		st.Phases = append(st.Phases, PhaseState{
			Phase:          ph.phase,
			Cutoff:         ph.cutoff.In(tz),
			OpenForBetting: gateErr == nil,
			Reason:         errs.KindOf(gateErr),
		})
	}
	return st
}

func (s *Service) ListBets(ctx context.Context, marketID int64, f BetFilter, tz *time.Location) ([]BetSummary, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 500
	}
	list, err := s.bets.ListBets(ctx, marketID, f)
	if err != nil {
		return nil, errs.Transient("list bets", err)
	}
	out := make([]BetSummary, len(list))
	for i, b := range list {
		out[i] = Summarize(b, tz)
	}
	return out, nil
}

// Summarize converte uma aposta para exibição no fuso tz
func Summarize(b bet.Bet, tz *time.Location) BetSummary {
	sum := BetSummary{
		ID:           b.ID.String(),
		SubmissionID: b.SubmissionID.String(),
		BettorID:     b.BettorID,
		Phase:        b.Phase,
		BetType:      b.BetType,
		Outcome:      b.Outcome,
		Stake:        b.Stake,
		Rate:         b.Rate.String(),
		Payout:       b.Payout,
		Liability:    b.Liability,
		DrawDate:     b.DrawDate,
		Status:       b.Status,
		PlacedAt:     b.PlacedAt.In(tz),
	}
	if b.SettledAt != nil {
		at := b.SettledAt.In(tz)
		sum.SettledAt = &at
	}
	return sum
}
