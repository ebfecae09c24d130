package domain

import (
	"encoding/json"
	"time"
)

// AuditLog records an administrative action
type AuditLog struct {
	ID           string
	ActorID      string // Operator who performed the action
	Action       string
	ResourceType string
	ResourceID   string
	RequestID    string
	BeforeState  JSON
	AfterState   JSON
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	AuditActionSplitConfigCreate AuditAction = "split_configuration.create"
	AuditActionSplitConfigUpdate AuditAction = "split_configuration.update"
	AuditActionSplitConfigDelete AuditAction = "split_configuration.delete"
	AuditActionIntentCancel      AuditAction = "intent.cancel"
	AuditActionAccountDeactivate AuditAction = "account.deactivate"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Limit        int
}
