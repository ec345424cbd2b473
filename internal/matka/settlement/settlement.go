// Package settlement declara resultados e liquida as apostas de um dia do mercado.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/internal/matka/bet"
	"github.com/radieske/matka-exchange/internal/matka/digits"
	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/shared/metrics"
	"github.com/radieske/matka-exchange/pkg/contracts/events"
)

var ErrInvalidDeclaration = errors.New("invalid result declaration")

// Declaration é a patti anunciada pelo operador para uma fase de um dia
type Declaration struct {
	MarketID   int64
	DrawDate   string
	Phase      market.Phase
	Patti      string
	DeclaredBy string
}

// Validate aceita só OPEN/CLOSE e pattis do catálogo
func (d Declaration) Validate() error {
	if d.MarketID <= 0 {
		return fmt.Errorf("%w: market id required", ErrInvalidDeclaration)
	}
	if d.Phase != market.PhaseOpen && d.Phase != market.PhaseClose {
		return fmt.Errorf("%w: results are declared for OPEN or CLOSE, got %q", ErrInvalidDeclaration, d.Phase)
	}
	if _, ok := digits.ClassifyPatti(d.Patti); !ok {
		return fmt.Errorf("%w: %q is not a single, double or triple patti", ErrInvalidDeclaration, d.Patti)
	}
	if _, err := time.Parse(market.DateLayout, d.DrawDate); err != nil {
		return fmt.Errorf("%w: draw date %q", ErrInvalidDeclaration, d.DrawDate)
	}
	return nil
}

// Decide aplica o resultado à aposta. ok=false quando o resultado
// ainda não permite decidir (fase não declarada, ou JODI sem as duas).
func Decide(b bet.Bet, r *market.DrawResult) (status bet.Status, ok bool) {
	if r == nil {
		return "", false
	}
	won := false
	switch b.Phase {
	case market.PhaseOpen, market.PhaseClose:
		patti := r.Patti(b.Phase)
		if patti == "" {
			return "", false
		}
		switch b.BetType {
		case digits.Single:
			ank, _ := digits.Ank(patti)
			won = b.Outcome == ank
		case digits.SinglePatti, digits.DoublePatti, digits.TriplePatti:
			class, _ := digits.ClassifyPatti(patti)
			won = b.Outcome == patti && class == b.BetType
		default:
			return "", false
		}
	case market.PhaseJodi:
		jodi, ready := r.Jodi()
		if !ready {
			return "", false
		}
		won = b.BetType == digits.Jodi && b.Outcome == jodi
	default:
		return "", false
	}
	if won {
		return bet.StatusWon, true
	}
	return bet.StatusLost, true
}

// Outcome é o que uma declaração produziu no storage
type Outcome struct {
	Result  *market.DrawResult
	Applied bool      // false quando a fase já estava declarada
	Settled []bet.Bet // apostas que saíram de PLACED nesta transação
}

// Store grava o resultado e liquida as apostas numa única transação
type Store interface {
	SettleDraw(ctx context.Context, d Declaration, at time.Time) (*Outcome, error)
	PendingCredits(ctx context.Context, marketID int64, drawDate string) ([]bet.Bet, error)
	MarkCredited(ctx context.Context, betID string, at time.Time) error
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Ledger credita o payout; idempotente por externalRef
type Ledger interface {
	Credit(ctx context.Context, userID string, amount int64, externalRef string) error
}

type Publisher interface {
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

type Notifier interface {
	NotifyBookChanged(ctx context.Context, e events.BookChanged) error
}

type Service struct {
	log       *zap.Logger
	store     Store
	locker    Locker
	ledger    Ledger
	publisher Publisher
	notifier  Notifier
	metrics   *metrics.Matka
	lockTTL   time.Duration
	now       func() time.Time
}

func NewService(log *zap.Logger, store Store, locker Locker, ledger Ledger, publisher Publisher, notifier Notifier, m *metrics.Matka) *Service {
	return &Service{
		log:       log,
		store:     store,
		locker:    locker,
		ledger:    ledger,
		publisher: publisher,
		notifier:  notifier,
		metrics:   m,
		lockTTL:   30 * time.Second,
		now:       time.Now,
	}
}

// Settle processa uma declaração. Redeclarar não troca a patti gravada,
// mas liquida apostas ainda PLACED e reenvia os créditos pendentes do dia.
func (s *Service) Settle(ctx context.Context, d Declaration) (*Outcome, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, fmt.Sprintf("settle:%d:%s", d.MarketID, d.DrawDate), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("settlement lock: %w", err)
	}
	defer release()

	out, err := s.store.SettleDraw(ctx, d, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("settle draw: %w", err)
	}
	if !out.Applied {
		s.log.Info("result already declared",
			zap.Int64("market_id", d.MarketID),
			zap.String("draw_date", d.DrawDate),
			zap.String("phase", string(d.Phase)))
	}

	counts := map[bet.Status]int{}
	for _, b := range out.Settled {
		counts[b.Status]++
		e := events.BetSettled{
			BetID:    b.ID.String(),
			UserID:   b.BettorID,
			MarketID: b.MarketID,
			Status:   string(b.Status),
			Ts:       s.now().UTC(),
		}
		if b.Status == bet.StatusWon {
			e.Payout = b.Payout
			e.ExternalRef = b.ID.String()
		}
		if err := s.publisher.PublishBetSettled(ctx, e); err != nil {
			s.log.Warn("publish bet_settled", zap.String("bet_id", e.BetID), zap.Error(err))
		}
	}
	for st, n := range counts {
		s.metrics.Settled(string(st), n)
	}

	if len(out.Settled) > 0 && s.notifier != nil {
		_ = s.notifier.NotifyBookChanged(ctx, events.BookChanged{
			MarketID:  d.MarketID,
			DrawDate:  d.DrawDate,
			Reason:    "settled",
			UpdatedAt: s.now().UTC(),
		})
	}

	if err := s.creditWinners(ctx, d.MarketID, d.DrawDate); err != nil {
		return out, err
	}
	return out, nil
}

// creditWinners envia ao ledger todo WON ainda não creditado (external_ref = id da aposta)
func (s *Service) creditWinners(ctx context.Context, marketID int64, drawDate string) error {
	pending, err := s.store.PendingCredits(ctx, marketID, drawDate)
	if err != nil {
		return fmt.Errorf("pending credits: %w", err)
	}
	var failed int
	for _, b := range pending {
		ref := b.ID.String()
		if err := s.ledger.Credit(ctx, b.BettorID, b.Payout, ref); err != nil {
			failed++
			s.metrics.ConsumerError("ledger")
			s.log.Error("ledger credit", zap.String("bet_id", ref), zap.Error(err))
			continue
		}
		if err := s.store.MarkCredited(ctx, ref, s.now().UTC()); err != nil {
			failed++
			s.log.Error("mark credited", zap.String("bet_id", ref), zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d ledger credits failed", failed, len(pending))
	}
	return nil
}
