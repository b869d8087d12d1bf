package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// envelope is the wire form of one broadcast on the Redis channel.
type envelope struct {
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge fans broadcasts out across process instances through Redis pub/sub.
// Broadcast publishes to a shared channel; every instance's Run loop delivers
// each published envelope to its local hub, including the publisher's own, so
// local and remote connections see the same stream.
type Bridge struct {
	hub     *Hub
	rc      *redis.Client
	channel string
	logger  *log.Logger
	bg      context.Context
}

func NewBridge(hub *Hub, rc *redis.Client, channel string, logger *log.Logger) *Bridge {
	if hub == nil {
		panic("realtime.NewBridge: hub is nil")
	}
	if logger == nil {
		panic("realtime.NewBridge: logger is nil")
	}
	return &Bridge{hub: hub, rc: rc, channel: channel, logger: logger, bg: context.Background()}
}

// Broadcast publishes the event envelope. If the publish fails the event is
// delivered to the local hub only, so clients on this instance still hear it.
func (b *Bridge) Broadcast(room, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Errorf("bridge marshal %s: %v", event, err)
		return
	}
	env, err := json.Marshal(envelope{Room: room, Event: event, Payload: data})
	if err != nil {
		b.logger.Errorf("bridge marshal envelope: %v", err)
		return
	}
	if err := b.rc.Publish(b.bg, b.channel, env).Err(); err != nil {
		b.logger.Errorf("bridge publish: %v; delivering locally", err)
		b.hub.Broadcast(room, event, json.RawMessage(data))
	}
}

// Run consumes the Redis channel and replays envelopes into the local hub.
// It reconnects on subscription loss and returns when ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	for {
		sub := b.rc.Subscribe(ctx, b.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Errorf("bridge: unable to parse envelope: %v", err)
					continue
				}
				b.hub.Broadcast(env.Room, env.Event, env.Payload)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		b.logger.Error("bridge: pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
