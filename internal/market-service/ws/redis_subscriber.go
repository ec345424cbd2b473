package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal de notificações do book e repassa
// para os websockets. Cada réplica do market-service assina o mesmo canal.
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e events.BookChanged
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					log.Warn("ws subscriber unmarshal", zap.Error(err))
					continue
				}
				hub.Broadcast(e)
			}
		}
	}()
}
