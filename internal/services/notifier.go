package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// ChannelTherapistAlerts is the pub/sub channel carrying crisis escalations
// to the therapist-facing dashboard instances.
const ChannelTherapistAlerts = "solace:therapist_alerts"

// TherapistAlert is the payload published for a crisis escalation
type TherapistAlert struct {
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	RiskLevel      string    `json:"risk_level"`
	InterventionID string    `json:"intervention_id"`
	InstanceID     string    `json:"instance_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Notifier publishes therapist escalation events over Redis pub/sub.
// Without Redis it degrades to log-only — escalations are already persisted
// as notification rows, so delivery here is best-effort fan-out.
type Notifier struct {
	redis      *RedisService
	instanceID string
}

// NewNotifier creates a notifier. redisService may be nil.
func NewNotifier(redisService *RedisService) *Notifier {
	return &Notifier{
		redis:      redisService,
		instanceID: uuid.NewString(),
	}
}

// PublishTherapistAlert fans out one escalation event. Failures only log.
func (n *Notifier) PublishTherapistAlert(ctx context.Context, userID, riskLevel, interventionID string) {
	alert := TherapistAlert{
		EventID:        uuid.NewString(),
		UserID:         userID,
		RiskLevel:      riskLevel,
		InterventionID: interventionID,
		InstanceID:     n.instanceID,
		OccurredAt:     time.Now(),
	}

	if n.redis == nil {
		log.Printf("📣 [NOTIFIER] Therapist alert (no redis, log-only): user=%s risk=%s", userID, riskLevel)
		return
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		log.Printf("⚠️ [NOTIFIER] Failed to marshal therapist alert: %v", err)
		return
	}
	if err := n.redis.Publish(ctx, ChannelTherapistAlerts, payload); err != nil {
		log.Printf("⚠️ [NOTIFIER] Failed to publish therapist alert for user %s: %v", userID, err)
		return
	}
	log.Printf("📣 [NOTIFIER] Published therapist alert: user=%s risk=%s", userID, riskLevel)
}
