package mqtt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/absmach/flparticipant/participant"
)

const (
	statusTopicTemplate = "m/%s/c/%s/control/participant/status"
	roundTopicTemplate  = "m/%s/c/%s/control/coordinator/round"
)

var _ participant.StatusNotifier = (*notifier)(nil)

func StatusTopic(domainID, channelID string) string {
	return fmt.Sprintf(statusTopicTemplate, domainID, channelID)
}

func RoundTopic(domainID, channelID string) string {
	return fmt.Sprintf(roundTopicTemplate, domainID, channelID)
}

type notifier struct {
	pubsub PubSub
	topic  string
}

// NewNotifier publishes every status the driver observes to the channel's
// status topic.
func NewNotifier(pubsub PubSub, domainID, channelID string) participant.StatusNotifier {
	return &notifier{
		pubsub: pubsub,
		topic:  StatusTopic(domainID, channelID),
	}
}

func (n *notifier) NotifyStatus(ctx context.Context, status participant.Status) error {
	payload := map[string]any{
		"status":         "online",
		"participant_id": status.ParticipantID,
		"name":           status.Name,
		"phase":          status.Phase.String(),
		"round":          status.Round,
		"rounds_done":    status.RoundsDone,
		"timestamp":      status.Timestamp,
	}

	return n.pubsub.Publish(ctx, n.topic, payload)
}

// SubscribeRounds nudges the heartbeat whenever the coordinator announces a
// round on the channel. Payloads are only logged; the heartbeat stays the
// source of truth for the participant phase.
func SubscribeRounds(ctx context.Context, pubsub PubSub, domainID, channelID string, nudge func(), logger *slog.Logger) error {
	handler := func(topic string, msg map[string]any) error {
		logger.Debug("round announcement received", slog.String("topic", topic), slog.Any("round", msg["round"]))
		nudge()

		return nil
	}

	return pubsub.Subscribe(ctx, RoundTopic(domainID, channelID), handler)
}
