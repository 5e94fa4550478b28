package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/skillbridge-app/backend/internal/workflow"
)

// WorkflowNotifier relays committed workflow events to connected websocket
// sessions and publishes them on the per-user Redis notification channel.
type WorkflowNotifier struct {
	Hub *Hub
	RDB *redis.Client
}

func NewWorkflowNotifier(hub *Hub, rdb *redis.Client) *WorkflowNotifier {
	return &WorkflowNotifier{Hub: hub, RDB: rdb}
}

func (n *WorkflowNotifier) Notify(evt workflow.Event) {
	n.Hub.SendToParties(evt.ClientID, evt.FreelancerID, evt)

	if n.RDB == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("realtime: marshal event: %v", err)
		return
	}
	targets := []uuid.UUID{evt.ClientID}
	if evt.FreelancerID != evt.ClientID {
		targets = append(targets, evt.FreelancerID)
	}
	for _, uid := range targets {
		if uid == uuid.Nil {
			continue
		}
		if err := n.RDB.Publish(context.Background(), "notifications:"+uid.String(), payload).Err(); err != nil {
			log.Printf("realtime: publish notification: %v", err)
		}
	}
}
