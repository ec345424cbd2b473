package kafka

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, Brokers("a:9092, b:9092,"))
	assert.Equal(t, []string{"localhost:9092"}, Brokers("localhost:9092"))
	assert.Nil(t, Brokers(""))
}

func TestNewWriter(t *testing.T) {
	w := NewWriter("a:9092,b:9092", "bet_placed")
	defer w.Close()

	assert.Equal(t, "bet_placed", w.Topic)
	assert.NotNil(t, w.Addr)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
}

func TestNewReader(t *testing.T) {
	r := NewReader("localhost:9092", "result_declared", "settlement-worker")
	defer r.Close()

	cfg := r.Config()
	assert.Equal(t, "settlement-worker", cfg.GroupID)
	assert.Equal(t, "result_declared", cfg.Topic)
	assert.Zero(t, cfg.CommitInterval)
}
