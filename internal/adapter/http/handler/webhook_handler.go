package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/creditledger/internal/adapter/gateway"
	"github.com/iho/creditledger/internal/adapter/http/dto"
	"github.com/iho/creditledger/internal/domain"
	"github.com/iho/creditledger/internal/infrastructure/metrics"
	"github.com/iho/creditledger/internal/usecase"
)

const (
	// DeliveryIDHeader identifies one webhook delivery.
	DeliveryIDHeader = "X-Delivery-ID"
	// SignatureHeader carries the HMAC-SHA256 of the body.
	SignatureHeader = "X-Signature"
	// SignatureTimestampHeader is mixed into the signature when present.
	SignatureTimestampHeader = "X-Signature-Timestamp"
)

// WebhookHandler receives payment gateway notifications.
type WebhookHandler struct {
	reconcileUC Reconciler
	deduper     usecase.DeliveryDeduper
	verifier    *gateway.Verifier
	metrics     *metrics.Metrics
	dedupeTTL   time.Duration
}

// WebhookOptions configures optional webhook behaviour.
type WebhookOptions struct {
	Deduper   usecase.DeliveryDeduper
	Verifier  *gateway.Verifier
	Metrics   *metrics.Metrics
	DedupeTTL time.Duration
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(reconcileUC Reconciler, opts WebhookOptions) *WebhookHandler {
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = 24 * time.Hour
	}
	return &WebhookHandler{
		reconcileUC: reconcileUC,
		deduper:     opts.Deduper,
		verifier:    opts.Verifier,
		metrics:     opts.Metrics,
		dedupeTTL:   opts.DedupeTTL,
	}
}

func (h *WebhookHandler) observe(result string) {
	if h.metrics != nil {
		h.metrics.WebhookDeliveries.WithLabelValues(result).Inc()
	}
}

// Receive handles one delivery. Repeated deliveries are answered without
// touching the ledger; a failed delivery is forgotten so the gateway's
// retry is processed again.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, domain.MaxProofSize+1))
	if err != nil {
		h.observe("rejected")
		writeError(w, http.StatusBadRequest, "failed to read body", err.Error())
		return
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(body, r.Header.Get(SignatureTimestampHeader), r.Header.Get(SignatureHeader)); err != nil {
			h.observe("unauthorized")
			logger.Warn().Err(err).Msg("webhook signature rejected")
			writeError(w, http.StatusUnauthorized, "invalid signature", err.Error())
			return
		}
	}

	deliveryID := r.Header.Get(DeliveryIDHeader)
	if deliveryID != "" && h.deduper != nil {
		first, err := h.deduper.FirstSeen(ctx, deliveryID, h.dedupeTTL)
		if err != nil {
			// Dedupe is an optimisation; reconciliation stays idempotent without it.
			logger.Warn().Err(err).Str("delivery_id", deliveryID).Msg("delivery dedupe unavailable")
		} else if !first {
			h.observe("duplicate")
			writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate", "delivery_id": deliveryID})
			return
		}
	}

	forget := func() {
		if deliveryID != "" && h.deduper != nil {
			if err := h.deduper.Forget(ctx, deliveryID); err != nil {
				logger.Warn().Err(err).Str("delivery_id", deliveryID).Msg("failed to forget delivery")
			}
		}
	}

	proof, err := gateway.Normalize(body)
	if err != nil {
		h.observe("rejected")
		forget()
		writeDomainError(w, r, "invalid payment proof", err)
		return
	}

	if proof.Status != domain.ProofStatusPaid {
		h.observe("ignored")
		writeJSON(w, http.StatusAccepted, dto.ProofIgnoredResponse{Status: "ignored", ProofStatus: string(proof.Status)})
		return
	}

	result, err := h.reconcileUC.ReconcileByExternalReference(ctx, proof.ExternalReference, proof)
	if err != nil {
		h.observe("failed")
		forget()
		logger.Info().Err(err).
			Str("external_reference", proof.ExternalReference).
			Str("delivery_id", deliveryID).
			Msg("webhook not reconciled")
		writeDomainError(w, r, "failed to reconcile payment", err)
		return
	}

	if result.AlreadyProcessed {
		h.observe("replayed")
	} else {
		h.observe("processed")
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(result))
}
