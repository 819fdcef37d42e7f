// ABOUTME: Push endpoint handlers translating broker events into routed messages
// ABOUTME: Malformed input is absorbed and acknowledged; only broker faults surface

package interceptor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/2389/convo-relay/internal/dedupe"
	"github.com/2389/convo-relay/internal/metrics"
	"github.com/2389/convo-relay/internal/routing"
)

// Event type tags, one per push endpoint. The tag becomes the envelope's
// data_type and, eventually, the event name pushed to clients.
const (
	EventHumanAgentAssistant   = "human-agent-assistant-event"
	EventConversationLifecycle = "conversation-lifecycle-event"
	EventNewMessage            = "new-message-event"
)

// pushRequest mirrors the broker's push delivery envelope.
type pushRequest struct {
	Message struct {
		Data        string `json:"data"`
		MessageID   string `json:"messageId"`
		PublishTime string `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// Handler receives push deliveries from the upstream event source and
// hands decodable ones to the routing publisher. The upstream retries on
// anything but success, so malformed or irrelevant input must be
// acknowledged, never errored: redelivering it would fail identically,
// forever.
type Handler struct {
	publisher *routing.Publisher
	dedupe    *dedupe.Cache
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewHandler creates the push handler. Pass nil logger for default.
func NewHandler(publisher *routing.Publisher, cache *dedupe.Cache, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		publisher: publisher,
		dedupe:    cache,
		metrics:   m,
		logger:    logger.With("component", "interceptor"),
	}
}

// Routes registers the push endpoints, one per subscribed topic.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/"+EventHumanAgentAssistant, h.pushHandler(EventHumanAgentAssistant))
	r.Post("/"+EventConversationLifecycle, h.pushHandler(EventConversationLifecycle))
	r.Post("/"+EventNewMessage, h.pushHandler(EventNewMessage))
}

// pushHandler builds the endpoint handler for one event type. Broker
// faults return 500 so the upstream redelivers; everything else is 204.
func (h *Handler) pushHandler(dataType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.handlePush(r.Context(), r.Body, dataType); err != nil {
			h.logger.Error("routing push event failed",
				"data_type", dataType,
				"error", err)
			http.Error(w, "routing unavailable", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePush decodes one push delivery and routes it. A nil return means
// the delivery is acknowledged, whether or not anything was published.
func (h *Handler) handlePush(ctx context.Context, body io.Reader, dataType string) error {
	var push pushRequest
	if err := json.NewDecoder(body).Decode(&push); err != nil {
		h.logger.Warn("invalid push envelope", "data_type", dataType, "error", err)
		return nil
	}
	if push.Message.Data == "" {
		h.logger.Warn("push envelope has no message data", "data_type", dataType)
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(push.Message.Data)
	if err != nil {
		h.logger.Warn("push message data is not base64", "data_type", dataType, "error", err)
		return nil
	}

	var event struct {
		Conversation string `json:"conversation"`
	}
	if err := json.Unmarshal(data, &event); err != nil || event.Conversation == "" {
		h.logger.Warn("cannot extract conversation from push message",
			"data_type", dataType,
			"message_id", push.Message.MessageID)
		return nil
	}

	if push.Message.MessageID != "" && h.dedupe.Seen(push.Message.MessageID) {
		h.metrics.DuplicatesSuppressed.Inc()
		h.logger.Debug("suppressed redelivered message",
			"data_type", dataType,
			"message_id", push.Message.MessageID)
		return nil
	}

	h.metrics.EventsReceived.WithLabelValues(dataType).Inc()

	err = h.publisher.Route(ctx, routing.Inbound{
		Conversation: event.Conversation,
		DataType:     dataType,
		Data:         string(data),
		PublishTime:  push.Message.PublishTime,
		MessageID:    push.Message.MessageID,
	})
	if err != nil && push.Message.MessageID != "" {
		// The 500 below makes the broker redeliver; the redelivery must
		// not be swallowed as a duplicate of a message that never routed.
		h.dedupe.Forget(push.Message.MessageID)
	}
	return err
}
