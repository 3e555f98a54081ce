package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sosajunior/crm-sub000/internal/application/services"
	"github.com/Sosajunior/crm-sub000/internal/domain/entities"
	"github.com/Sosajunior/crm-sub000/internal/infrastructure/observability"
	apperrors "github.com/Sosajunior/crm-sub000/pkg/errors"
)

const (
	signatureHeader      = "X-Webhook-Signature"
	idempotencyKeyHeader = "Idempotency-Key"
	maxWebhookBodyBytes  = 1 << 20
)

// Ingester processes one webhook delivery
type Ingester interface {
	Ingest(ctx context.Context, eventType string, body []byte, idempotencyKey string) (*services.IngestResult, error)
}

// WebhookHandler receives funnel events from the CRM and chat channels
type WebhookHandler struct {
	ingester      Ingester
	signingSecret string
	now           func() time.Time
}

// NewWebhookHandler creates a new webhook handler. An empty signingSecret
// disables signature verification.
func NewWebhookHandler(ingester Ingester, signingSecret string) *WebhookHandler {
	return &WebhookHandler{
		ingester:      ingester,
		signingSecret: signingSecret,
		now:           time.Now,
	}
}

// WebhookResponse is the body of an accepted delivery
type WebhookResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// WebhookStatus is the body of the connectivity check
type WebhookStatus struct {
	Status          string               `json:"status"`
	SupportedEvents []entities.EventType `json:"supportedEvents"`
	Timestamp       string               `json:"timestamp"`
}

// HandleEvent handles POST /webhook/{eventType}
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	eventType := r.PathValue("eventType")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if h.signingSecret != "" && !h.verifySignature(r.Header.Get(signatureHeader), body) {
		observability.LoggerFromContext(r.Context()).Warn().
			Str("event_type", eventType).
			Msg("Rejected webhook with invalid signature")
		respondWithAppError(w, apperrors.NewUnauthorizedError("invalid webhook signature"), "")
		return
	}

	result, err := h.ingester.Ingest(r.Context(), eventType, body, r.Header.Get(idempotencyKeyHeader))
	if err != nil {
		respondWithAppError(w, err, "failed to process event")
		return
	}

	message := fmt.Sprintf("event %s processed", eventType)
	if result.Duplicate {
		message = "already processed"
	}
	respondWithJSON(w, http.StatusOK, WebhookResponse{
		Success:   true,
		Message:   message,
		Timestamp: timestamp(h.now),
	})
}

// HandleStatus handles GET /webhook/{anything}. It performs no business logic.
func (h *WebhookHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, WebhookStatus{
		Status:          "online",
		SupportedEvents: entities.SupportedEventTypes(),
		Timestamp:       timestamp(h.now),
	})
}

// verifySignature checks a hex HMAC-SHA256 of the raw body, with or without
// a "sha256=" prefix
func (h *WebhookHandler) verifySignature(signature string, body []byte) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if signature == "" {
		return false
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.signingSecret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
