package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/matka-exchange/pkg/contracts/events"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher publica bet_placed e result_declared, cada um no seu writer
type KafkaPublisher struct {
	BetPlaced      MessageWriter
	ResultDeclared MessageWriter
}

func NewKafkaPublisher(betPlaced, resultDeclared MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{BetPlaced: betPlaced, ResultDeclared: resultDeclared}
}

// PublishBetPlaced envia todas as apostas da submissão num único batch
func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, evs ...events.BetPlaced) error {
	if len(evs) == 0 {
		return nil
	}
	now := time.Now()
	msgs := make([]kafka.Message, 0, len(evs))
	for _, e := range evs {
		e.TsUnixMs = now.UnixMilli()
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(e.BetID), Value: b, Time: now})
	}
	return p.BetPlaced.WriteMessages(ctx, msgs...)
}

// PublishResultDeclared usa mercado+dia como chave: declarações do mesmo
// dia caem na mesma partição e são consumidas em ordem.
func (p *KafkaPublisher) PublishResultDeclared(ctx context.Context, e events.ResultDeclared) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%d:%s", e.MarketID, e.DrawDate)
	return p.ResultDeclared.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b, Time: e.Ts})
}
