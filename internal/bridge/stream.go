package bridge

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	streamWaitMS     = 25000
	streamRetryDelay = 2 * time.Second
)

// Publisher is the sink for decoded daemon events, implemented by bus.Bus.
type Publisher interface {
	Publish(topic string, payload []byte)
}

// StartEventStream launches a goroutine that long-polls the daemon's event
// feed and republishes each event, in feed order, onto pub. It returns
// immediately and runs until ctx is cancelled. Fetch failures back off and
// resume from the last seen cursor, so a daemon restart only drops events
// the daemon itself no longer holds.
func StartEventStream(ctx context.Context, client *Client, pub Publisher, log zerolog.Logger) {
	go func() {
		var since uint64
		for {
			if ctx.Err() != nil {
				return
			}
			events, err := client.FetchEvents(ctx, since, streamWaitMS)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Uint64("since", since).Msg("event feed fetch failed")
				select {
				case <-ctx.Done():
					return
				case <-time.After(streamRetryDelay):
				}
				continue
			}
			for _, ev := range events {
				if ev.Seq > since {
					since = ev.Seq
				}
				if ev.Topic == "" {
					continue
				}
				pub.Publish(ev.Topic, ev.Payload)
			}
		}
	}()
}
