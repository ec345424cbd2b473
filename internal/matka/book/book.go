// Package book calcula a posição líquida da banca por resultado.
package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/internal/matka/digits"
	"github.com/radieske/matka-exchange/internal/matka/errs"
	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/shared/metrics"
)

// Entry é stake e payout somados de apostas vivas num mesmo resultado
type Entry struct {
	Outcome string
	Stake   int64
	Payout  int64
}

// Position é o valor do book para um resultado do domínio
type Position struct {
	Outcome string `json:"outcome"`
	Net     int64  `json:"net"`
	Stake   int64  `json:"stake"`
	Payout  int64  `json:"payout"`
}

type Book struct {
	MarketID   int64        `json:"marketId"`
	Phase      market.Phase `json:"phase"`
	BetType    string       `json:"betType"`
	DrawDate   string       `json:"drawDate"`
	TotalStake int64        `json:"totalStake"`
	Positions  []Position   `json:"positions"`
}

// Net devolve o mapa resultado → posição
func (b *Book) Net() map[string]int64 {
	out := make(map[string]int64, len(b.Positions))
	for _, p := range b.Positions {
		out[p.Outcome] = p.Net
	}
	return out
}

// Accumulator soma stake total e payout por resultado em uma passada;
// a combinação fica para o final: net[d] = payout[d] - totalStake.
type Accumulator struct {
	domain     []string
	member     map[string]bool
	totalStake int64
	stake      map[string]int64
	payout     map[string]int64
}

func NewAccumulator(betType string) (*Accumulator, error) {
	domain, ok := digits.Domain(betType)
	if !ok {
		return nil, fmt.Errorf("unknown bet type %q", betType)
	}
	member := make(map[string]bool, len(domain))
	for _, d := range domain {
		member[d] = true
	}
	return &Accumulator{
		domain: domain,
		member: member,
		stake:  make(map[string]int64, len(domain)),
		payout: make(map[string]int64, len(domain)),
	}, nil
}

// Add registra uma aposta (ou um agregado). Resultado fora do domínio
// só desconta o stake.
func (a *Accumulator) Add(outcome string, stake, payout int64) {
	a.totalStake += stake
	if !a.member[outcome] {
		return
	}
	a.stake[outcome] += stake
	a.payout[outcome] += payout
}

func (a *Accumulator) TotalStake() int64 { return a.totalStake }

// Positions retorna todos os resultados do domínio, na ordem do catálogo
func (a *Accumulator) Positions() []Position {
	out := make([]Position, len(a.domain))
	for i, d := range a.domain {
		out[i] = Position{
			Outcome: d,
			Net:     a.payout[d] - a.totalStake,
			Stake:   a.stake[d],
			Payout:  a.payout[d],
		}
	}
	return out
}

// Query identifica a partição (mercado, fase, tipo, dia)
type Query struct {
	MarketID int64
	Phase    market.Phase
	BetType  string
	DrawDate string // vazio = dia corrente no fuso de referência
}

// Store devolve o agregado por resultado num único snapshot
type Store interface {
	AggregateBook(ctx context.Context, marketID int64, phase market.Phase, betType, drawDate string) ([]Entry, error)
}

type MarketReader interface {
	GetMarket(ctx context.Context, id int64) (*market.Market, error)
}

type Service struct {
	log     *zap.Logger
	markets MarketReader
	store   Store
	loc     *time.Location
	metrics *metrics.Matka
}

func NewService(log *zap.Logger, markets MarketReader, store Store, loc *time.Location, m *metrics.Matka) *Service {
	return &Service{log: log, markets: markets, store: store, loc: loc, metrics: m}
}

// ComputeBook é leitura pura: duas chamadas sem apostas novas no meio
// retornam o mesmo book.
func (s *Service) ComputeBook(ctx context.Context, q Query, now time.Time) (*Book, error) {
	start := time.Now()
	defer func() { s.metrics.BookComputed(time.Since(start).Seconds()) }()

	if _, ok := market.ParsePhase(string(q.Phase)); !ok {
		return nil, errs.New(errs.KindInvalidBetType, "unknown phase", map[string]any{"phase": q.Phase})
	}
	betType := digits.Normalize(q.BetType)
	if !digits.Known(betType) {
		return nil, errs.New(errs.KindInvalidBetType, "unknown bet type", map[string]any{"betType": q.BetType})
	}

	m, err := s.markets.GetMarket(ctx, q.MarketID)
	if errors.Is(err, market.ErrNotFound) || (err == nil && m.Deleted) {
		return nil, errs.New(errs.KindMarketNotFound, "market not found", map[string]any{"marketId": q.MarketID})
	}
	if err != nil {
		return nil, errs.Transient("load market", err)
	}

	drawDate := q.DrawDate
	if drawDate == "" {
		drawDate = market.DrawDate(now, s.loc)
	}

	entries, err := s.store.AggregateBook(ctx, q.MarketID, q.Phase, betType, drawDate)
	if err != nil {
		s.log.Warn("book aggregate failed", zap.Int64("market_id", q.MarketID), zap.Error(err))
		return nil, errs.Transient("aggregate book", err)
	}

	acc, err := NewAccumulator(betType)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		acc.Add(e.Outcome, e.Stake, e.Payout)
	}

	return &Book{
		MarketID:   q.MarketID,
		Phase:      q.Phase,
		BetType:    betType,
		DrawDate:   drawDate,
		TotalStake: acc.TotalStake(),
		Positions:  acc.Positions(),
	}, nil
}
