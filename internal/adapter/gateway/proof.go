// Package gateway turns payment-gateway payloads into domain.PaymentProof.
// Gateways disagree on field names and nesting; every variant is resolved
// here so the reconciliation core only sees the normalized shape.
package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/creditledger/internal/domain"
)

var (
	referenceKeys = []string{"external_reference", "externalReference", "reference", "txid", "txId", "charge_id", "correlationID"}
	gatewayIDKeys = []string{"endToEndId", "end_to_end_id", "e2eid", "e2eId", "gateway_transaction_id", "transaction_id", "transactionId"}
	amountKeys    = []string{"amount", "valor", "value", "total"}
	centsKeys     = []string{"amount_cents", "amountInCents", "value_cents"}
	statusKeys    = []string{"status", "state", "payment_status"}
	paidAtKeys    = []string{"paid_at", "paidAt", "horario", "payment_date", "paymentDate", "confirmed_at"}
)

var statusAliases = map[string]domain.ProofStatus{
	"paid":                            domain.ProofStatusPaid,
	"completed":                       domain.ProofStatusPaid,
	"concluida":                       domain.ProofStatusPaid,
	"approved":                        domain.ProofStatusPaid,
	"confirmed":                       domain.ProofStatusPaid,
	"settled":                         domain.ProofStatusPaid,
	"received":                        domain.ProofStatusPaid,
	"pending":                         domain.ProofStatusPending,
	"ativa":                           domain.ProofStatusPending,
	"active":                          domain.ProofStatusPending,
	"waiting":                         domain.ProofStatusPending,
	"created":                         domain.ProofStatusPending,
	"processing":                      domain.ProofStatusPending,
	"failed":                          domain.ProofStatusFailed,
	"refused":                         domain.ProofStatusFailed,
	"rejected":                        domain.ProofStatusFailed,
	"error":                           domain.ProofStatusFailed,
	"cancelled":                       domain.ProofStatusCancelled,
	"canceled":                        domain.ProofStatusCancelled,
	"expired":                         domain.ProofStatusCancelled,
	"removida_pelo_usuario_recebedor": domain.ProofStatusCancelled,
	"removida_pelo_psp":               domain.ProofStatusCancelled,
}

// Normalize decodes a webhook or poll payload.
func Normalize(body []byte) (*domain.PaymentProof, error) {
	if len(body) > domain.MaxProofSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d bytes", domain.ErrProofTooLarge, len(body), domain.MaxProofSize)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidProof, err)
	}

	return NormalizeMap(raw)
}

// NormalizeMap extracts a proof from an already decoded payload.
func NormalizeMap(raw map[string]any) (*domain.PaymentProof, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrInvalidProof)
	}

	// Most specific scope first: a pix entry, then a charge, then the data
	// envelope, then the root.
	var scopes []map[string]any
	data := object(raw["data"])
	for _, parent := range []map[string]any{data, raw} {
		if parent == nil {
			continue
		}
		if pix := firstOf(parent["pix"]); pix != nil {
			scopes = append(scopes, pix)
		}
		if charge := object(parent["charge"]); charge != nil {
			scopes = append(scopes, charge)
		}
	}
	if data != nil {
		scopes = append(scopes, data)
	}
	scopes = append(scopes, raw)

	proof := &domain.PaymentProof{Raw: raw}

	proof.ExternalReference = lookupString(scopes, referenceKeys)
	if proof.ExternalReference == "" {
		return nil, fmt.Errorf("%w: no external reference", domain.ErrInvalidProof)
	}
	proof.GatewayTransactionID = lookupString(scopes, gatewayIDKeys)

	amount, err := lookupAmount(scopes)
	if err != nil {
		return nil, err
	}
	proof.Amount = amount

	status, err := lookupStatus(scopes)
	if err != nil {
		return nil, err
	}
	// A settled pix entry carries an end-to-end ID and no status of its own.
	if status == "" && proof.GatewayTransactionID != "" {
		status = domain.ProofStatusPaid
	}
	if status == "" {
		return nil, fmt.Errorf("%w: no status", domain.ErrInvalidProof)
	}
	proof.Status = status

	paidAt, err := lookupTime(scopes, paidAtKeys)
	if err != nil {
		return nil, err
	}
	proof.PaidAt = paidAt

	if err := domain.ValidateProof(proof.Record()); err != nil {
		return nil, err
	}

	return proof, nil
}

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func firstOf(v any) map[string]any {
	switch t := v.(type) {
	case []any:
		if len(t) > 0 {
			return object(t[0])
		}
	case map[string]any:
		return t
	}
	return nil
}

func lookup(scopes []map[string]any, keys []string) (any, bool) {
	for _, scope := range scopes {
		for _, key := range keys {
			if v, ok := scope[key]; ok && v != nil {
				if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
					continue
				}
				return v, true
			}
		}
	}
	return nil, false
}

func lookupString(scopes []map[string]any, keys []string) string {
	v, ok := lookup(scopes, keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func lookupAmount(scopes []map[string]any) (*decimal.Decimal, error) {
	if v, ok := lookup(scopes, amountKeys); ok {
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		return &d, nil
	}
	if v, ok := lookup(scopes, centsKeys); ok {
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		d = d.Shift(-2)
		return &d, nil
	}
	return nil, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case json.Number:
		s = t.String()
	case float64:
		return decimal.NewFromFloat(t), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: amount has type %T", domain.ErrInvalidProof, v)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", domain.ErrInvalidProof, s)
	}
	return d, nil
}

func lookupStatus(scopes []map[string]any) (domain.ProofStatus, error) {
	raw := lookupString(scopes, statusKeys)
	if raw == "" {
		return "", nil
	}
	status, ok := statusAliases[strings.ToLower(raw)]
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidProof, raw)
	}
	return status, nil
}

func lookupTime(scopes []map[string]any, keys []string) (*time.Time, error) {
	s := lookupString(scopes, keys)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: timestamp %q", domain.ErrInvalidProof, s)
}
