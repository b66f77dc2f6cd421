package realtime

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/sciezka-prawa/sciezka-backend/internal/platform/redis"
)

const (
	// ChannelBills carries public bill status changes.
	ChannelBills = "bills"
	// ChannelJobs carries job progress and sync results for staff.
	ChannelJobs = "jobs"
)

func UserChannel(userID uuid.UUID) string { return "user:" + userID.String() }

// Route picks the hub channel for a bus event.
func Route(ev redis.Event) (string, bool) {
	switch ev.Type {
	case redis.EventBillStatusChanged:
		return ChannelBills, true
	case redis.EventJobUpdated, redis.EventSyncFinished:
		return ChannelJobs, true
	case redis.EventNotificationCreated:
		var p struct {
			UserID uuid.UUID `json:"user_id"`
		}
		if err := json.Unmarshal(ev.Data, &p); err != nil || p.UserID == uuid.Nil {
			return "", false
		}
		return UserChannel(p.UserID), true
	}
	return "", false
}

// Bridge forwards bus events into hub until ctx is done. With Redis this fans
// events from workers in other processes out to this process's clients.
func Bridge(ctx context.Context, bus redis.Bus, hub *Hub) error {
	return bus.Subscribe(ctx, func(ev redis.Event) {
		ch, ok := Route(ev)
		if !ok {
			return
		}
		hub.Broadcast(Message{Channel: ch, Event: ev.Type, At: ev.At, Data: ev.Data})
	})
}
