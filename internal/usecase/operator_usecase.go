package usecase

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/iho/creditledger/internal/domain"
)

// OperatorCredential is a configured operator login.
type OperatorCredential struct {
	ID             string
	Role           domain.Role
	HashedPassword string
}

// ParseOperatorCredentials reads "id:role:bcrypt-hash" entries.
func ParseOperatorCredentials(entries []string) ([]OperatorCredential, error) {
	creds := make([]OperatorCredential, 0, len(entries))
	seen := make(map[string]bool)

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("operator %q: want id:role:bcrypt-hash", parts[0])
		}

		role := domain.Role(parts[1])
		if !role.IsValid() {
			return nil, fmt.Errorf("operator %q: unknown role %q", parts[0], parts[1])
		}
		if _, err := bcrypt.Cost([]byte(parts[2])); err != nil {
			return nil, fmt.Errorf("operator %q: password hash: %w", parts[0], err)
		}
		if seen[parts[0]] {
			return nil, fmt.Errorf("operator %q declared twice", parts[0])
		}
		seen[parts[0]] = true

		creds = append(creds, OperatorCredential{ID: parts[0], Role: role, HashedPassword: parts[2]})
	}

	return creds, nil
}

// OperatorUseCase authenticates operators of the administrative API.
type OperatorUseCase struct {
	operators map[string]OperatorCredential
}

// NewOperatorUseCase creates a new OperatorUseCase.
func NewOperatorUseCase(creds []OperatorCredential) *OperatorUseCase {
	operators := make(map[string]OperatorCredential, len(creds))
	for _, c := range creds {
		operators[c.ID] = c
	}

	return &OperatorUseCase{operators: operators}
}

// Authenticate verifies operator credentials
func (uc *OperatorUseCase) Authenticate(_ context.Context, id, password string) (*domain.Operator, error) {
	cred, ok := uc.operators[id]
	if !ok {
		// Compare anyway so unknown IDs take as long as bad passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, domain.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.HashedPassword), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	return &domain.Operator{ID: cred.ID, Role: cred.Role}, nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3Q9W1S8hGxL3z5r2Tq9bQ5e")
