package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/iho/creditledger/internal/domain"
)

// Clock returns the current time.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func withRetry(ctx context.Context, r Retrier, operation func() error) error {
	if r == nil {
		return operation()
	}
	return r.Retry(ctx, operation)
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// lockAccounts locks every account in ids in ID order (DEADLOCK PREVENTION).
// Accounts listed in create that do not exist yet are inserted and then
// locked, so credits can land on owners seen for the first time. Missing
// accounts outside create are absent from the result.
func lockAccounts(
	ctx context.Context,
	tx Tx,
	repo AccountRepository,
	ids []string,
	create map[string]bool,
	now time.Time,
) (map[string]*domain.Account, error) {
	sorted := sortedUnique(ids)

	accounts, err := repo.GetByIDsForUpdate(ctx, tx, sorted)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Account, len(sorted))
	for _, acc := range accounts {
		byID[acc.ID] = acc
	}

	var missing []string
	for _, id := range sorted {
		if byID[id] == nil && create[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return byID, nil
	}

	for _, id := range missing {
		kind, ownerID, err := domain.ParseAccountID(id)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureExists(ctx, tx, domain.NewAccount(kind, ownerID, now)); err != nil {
			return nil, err
		}
	}

	created, err := repo.GetByIDsForUpdate(ctx, tx, missing)
	if err != nil {
		return nil, err
	}
	for _, acc := range created {
		byID[acc.ID] = acc
	}

	for _, id := range missing {
		if byID[id] == nil {
			return nil, domain.ErrAccountNotFound
		}
	}

	return byID, nil
}

// recordAudit writes an audit record inside tx. A nil repository disables auditing.
func recordAudit(
	ctx context.Context,
	tx Tx,
	repo AuditRepository,
	idGen IDGenerator,
	action domain.AuditAction,
	resourceType, resourceID string,
	before, after any,
	now time.Time,
) error {
	if repo == nil {
		return nil
	}

	return repo.CreateTx(ctx, tx, &domain.AuditLog{
		ID:           idGen.Generate(),
		ActorID:      domain.ActorID(ctx),
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    requestID(ctx),
		BeforeState:  domain.MarshalState(before),
		AfterState:   domain.MarshalState(after),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    now,
	})
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestIDKey carries the request ID into audit records.
type RequestIDKey struct{}
