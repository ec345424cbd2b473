// Package consumer lê result_declared do Kafka e dispara a liquidação.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/matka/settlement"
	"github.com/radieske/matka-exchange/internal/shared/metrics"
	"github.com/radieske/matka-exchange/pkg/contracts/events"
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Settler interface {
	Settle(ctx context.Context, d settlement.Declaration) (*settlement.Outcome, error)
}

const retries = 3

type Consumer struct {
	log     *zap.Logger
	reader  Reader
	dlq     Writer // opcional
	settler Settler
	metrics *metrics.Matka
	backoff func(attempt int) time.Duration
}

func New(log *zap.Logger, reader Reader, dlq Writer, settler Settler, m *metrics.Matka) *Consumer {
	return &Consumer{
		log:     log,
		reader:  reader,
		dlq:     dlq,
		settler: settler,
		metrics: m,
		backoff: func(i int) time.Duration { return time.Duration(300*(i+1)) * time.Millisecond },
	}
}

// Run consome até o contexto ser cancelado. O offset só é commitado depois
// que a mensagem foi liquidada ou enviada para a DLQ.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("kafka read", zap.Error(err))
			c.metrics.ConsumerError("read")
			if !sleep(ctx, time.Second) {
				return ctx.Err()
			}
			continue
		}

		if err := c.Handle(ctx, msg); err != nil {
			c.log.Error("process result_declared", zap.ByteString("key", msg.Key), zap.Error(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Warn("kafka commit", zap.Error(err))
			c.metrics.ConsumerError("commit")
		}
	}
}

// Handle liquida uma mensagem. Payload inválido vai direto para a DLQ;
// falhas do settlement são tentadas de novo antes disso.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	var ev events.ResultDeclared
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.metrics.ConsumerError("decode")
		c.toDLQ(ctx, msg, "decode: "+err.Error())
		return err
	}
	d := settlement.Declaration{
		MarketID:   ev.MarketID,
		DrawDate:   ev.DrawDate,
		Phase:      market.Phase(ev.Phase),
		Patti:      ev.Patti,
		DeclaredBy: ev.DeclaredBy,
	}

	var err error
	for i := 0; i <= retries; i++ {
		if i > 0 && !sleep(ctx, c.backoff(i-1)) {
			return ctx.Err()
		}
		var out *settlement.Outcome
		if out, err = c.settler.Settle(ctx, d); err == nil {
			c.log.Info("result settled",
				zap.Int64("market_id", d.MarketID),
				zap.String("draw_date", d.DrawDate),
				zap.String("phase", string(d.Phase)),
				zap.Bool("applied", out.Applied),
				zap.Int("bets", len(out.Settled)))
			return nil
		}
		if errors.Is(err, settlement.ErrInvalidDeclaration) {
			break
		}
		c.log.Warn("settle attempt failed", zap.Int("attempt", i+1), zap.Error(err))
	}
	c.metrics.ConsumerError("settle")
	c.toDLQ(ctx, msg, err.Error())
	return err
}

func (c *Consumer) toDLQ(ctx context.Context, msg kafka.Message, reason string) {
	if c.dlq == nil {
		return
	}
	dead := kafka.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Time:    time.Now(),
		Headers: append(msg.Headers, kafka.Header{Key: "error", Value: []byte(reason)}),
	}
	if err := c.dlq.WriteMessages(ctx, dead); err != nil {
		c.log.Error("dlq write", zap.Error(err))
		c.metrics.ConsumerError("dlq")
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
