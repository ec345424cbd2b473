package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/matka-exchange/pkg/contracts/events"
)

// BookNotifier avisa os market-services (e seus websockets) que o book mudou
type BookNotifier struct {
	r       *redis.Client
	channel string
}

func NewBookNotifier(r *redis.Client, channel string) *BookNotifier {
	return &BookNotifier{r: r, channel: channel}
}

func (n *BookNotifier) NotifyBookChanged(ctx context.Context, e events.BookChanged) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return n.r.Publish(ctx, n.channel, b).Err()
}
