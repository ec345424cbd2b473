package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/matka/settlement"
	"github.com/radieske/matka-exchange/pkg/contracts/events"
)

type MockSettler struct{ mock.Mock }

func (m *MockSettler) Settle(ctx context.Context, d settlement.Declaration) (*settlement.Outcome, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Outcome), args.Error(1)
}

type captureWriter struct{ msgs []kafka.Message }

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

// fakeReader entrega as mensagens na ordem e depois cancela o contexto
type fakeReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func declared(t *testing.T, phase, patti string) kafka.Message {
	t.Helper()
	b, err := json.Marshal(events.ResultDeclared{
		MarketID: 7, DrawDate: "2026-10-18", Phase: phase, Patti: patti, DeclaredBy: "op",
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte("7:2026-10-18"), Value: b}
}

func newConsumer(s Settler, dlq Writer) *Consumer {
	c := New(zap.NewNop(), nil, dlq, s, nil)
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestConsumer_HandleSettles(t *testing.T) {
	s := new(MockSettler)
	want := settlement.Declaration{
		MarketID: 7, DrawDate: "2026-10-18", Phase: market.PhaseOpen, Patti: "128", DeclaredBy: "op",
	}
	s.On("Settle", mock.Anything, want).Return(&settlement.Outcome{Applied: true}, nil).Once()
	dlq := &captureWriter{}

	require.NoError(t, newConsumer(s, dlq).Handle(context.Background(), declared(t, "OPEN", "128")))
	assert.Empty(t, dlq.msgs)
	s.AssertExpectations(t)
}

func TestConsumer_RetriesThenDLQ(t *testing.T) {
	s := new(MockSettler)
	s.On("Settle", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	dlq := &captureWriter{}

	err := newConsumer(s, dlq).Handle(context.Background(), declared(t, "OPEN", "128"))
	require.Error(t, err)
	s.AssertNumberOfCalls(t, "Settle", retries+1)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "7:2026-10-18", string(dlq.msgs[0].Key))
	require.NotEmpty(t, dlq.msgs[0].Headers)
	assert.Equal(t, "db down", string(dlq.msgs[0].Headers[len(dlq.msgs[0].Headers)-1].Value))
}

func TestConsumer_RecoversWithinRetries(t *testing.T) {
	s := new(MockSettler)
	s.On("Settle", mock.Anything, mock.Anything).Return(nil, errors.New("lock held")).Twice()
	s.On("Settle", mock.Anything, mock.Anything).Return(&settlement.Outcome{}, nil).Once()
	dlq := &captureWriter{}

	require.NoError(t, newConsumer(s, dlq).Handle(context.Background(), declared(t, "CLOSE", "550")))
	s.AssertNumberOfCalls(t, "Settle", 3)
	assert.Empty(t, dlq.msgs)
}

func TestConsumer_InvalidGoesStraightToDLQ(t *testing.T) {
	t.Run("bad json", func(t *testing.T) {
		s := new(MockSettler)
		dlq := &captureWriter{}
		err := newConsumer(s, dlq).Handle(context.Background(), kafka.Message{Value: []byte("{")})
		require.Error(t, err)
		assert.Len(t, dlq.msgs, 1)
		s.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
	})

	t.Run("invalid declaration", func(t *testing.T) {
		s := new(MockSettler)
		s.On("Settle", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: bad patti", settlement.ErrInvalidDeclaration)).Once()
		dlq := &captureWriter{}
		err := newConsumer(s, dlq).Handle(context.Background(), declared(t, "OPEN", "121"))
		require.ErrorIs(t, err, settlement.ErrInvalidDeclaration)
		s.AssertNumberOfCalls(t, "Settle", 1)
		assert.Len(t, dlq.msgs, 1)
	})
}

func TestConsumer_RunCommitsEveryMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := new(MockSettler)
	s.On("Settle", mock.Anything, mock.Anything).Return(&settlement.Outcome{}, nil)
	reader := &fakeReader{
		msgs:   []kafka.Message{declared(t, "OPEN", "128"), {Value: []byte("not json")}},
		cancel: cancel,
	}
	c := newConsumer(s, &captureWriter{})
	c.reader = reader

	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, reader.committed, 2)
	s.AssertNumberOfCalls(t, "Settle", 1)
}
