package fanout

import (
	"encoding/json"
	"log"

	"paidreply/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// StartEventBridge launches a goroutine that feeds Redis Pub/Sub events into
// the local router. Handlers publish through storage.PublishEvent; with the
// bridge, every server process delivers the event to its own room members.
// The goroutine exits when the subscription is closed.
func StartEventBridge(sub *redis.PubSub, router *Router) {
	go func() {
		for msg := range sub.Channel() {
			var routed models.RoutedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &routed); err != nil {
				log.Printf("fanout: dropping malformed event from bus: %v", err)
				continue
			}
			router.Broadcast(Namespace(routed.Namespace), routed.Key, routed.Event)
		}
	}()
}
