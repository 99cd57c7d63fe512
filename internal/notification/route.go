package notification

import (
	"fmt"

	"github.com/dmitrymomot/notifyhub/pkg/broker"
)

const (
	Exchange = "notifications.direct"

	FailedRoutingKey = "failed"
	FailedQueue      = "failed.queue"
)

// Queue is where a channel's envelopes are published and consumed.
type Queue struct {
	RoutingKey string
	Name       string
}

var routes = map[Channel]Queue{
	ChannelEmail: {RoutingKey: "email", Name: "email.queue"},
	ChannelPush:  {RoutingKey: "push", Name: "push.queue"},
}

// Route is total over Channels and rejects anything else.
func Route(ch Channel) (Queue, error) {
	q, ok := routes[ch]
	if !ok {
		return Queue{}, fmt.Errorf("%w: %q", ErrUnknownChannel, string(ch))
	}
	return q, nil
}

// Topology is the broker layout: one queue per channel plus the failed queue.
func Topology() broker.Topology {
	t := broker.Topology{Exchange: Exchange}
	for _, ch := range Channels() {
		q := routes[ch]
		t.Queues = append(t.Queues, broker.QueueSpec{Name: q.Name, RoutingKey: q.RoutingKey})
	}
	t.Queues = append(t.Queues, broker.QueueSpec{Name: FailedQueue, RoutingKey: FailedRoutingKey})
	return t
}
