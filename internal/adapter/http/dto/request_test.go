package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/creditledger/internal/domain"
)

func TestCreateIntentRequest_ToUseCaseInput(t *testing.T) {
	var req CreateIntentRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"owner_kind": "client",
		"owner_id": "c1",
		"service_category": "exam",
		"partner_id": "lab-7",
		"amount": "100.00",
		"ttl_seconds": 600
	}`), &req))

	in := req.ToUseCaseInput()
	assert.Equal(t, domain.OwnerKindClient, in.OwnerKind)
	assert.Equal(t, "c1", in.OwnerID)
	assert.Equal(t, "exam", in.ServiceCategory)
	assert.Equal(t, "lab-7", in.PartnerID)
	assert.True(t, in.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 10*time.Minute, in.TTL)
}

func TestCreateIntentRequest_PackageWithoutAmount(t *testing.T) {
	var req CreateIntentRequest
	require.NoError(t, json.Unmarshal([]byte(`{"owner_kind":"company","owner_id":"acme","package_id":"pro"}`), &req))

	in := req.ToUseCaseInput()
	assert.Equal(t, "pro", in.PackageID)
	assert.True(t, in.Amount.IsZero())
	assert.Zero(t, in.TTL)
}

func TestUsageRequest_NegatesAmount(t *testing.T) {
	req := &UsageRequest{AccountID: "client:c1", Amount: decimal.RequireFromString("2.50"), ServiceReference: "exam-9"}

	in := req.ToUseCaseInput()
	assert.Equal(t, domain.KindUsage, in.Kind)
	assert.True(t, in.Amount.Equal(decimal.RequireFromString("-2.50")))
	require.NotNil(t, in.ServiceReference)
	assert.Equal(t, "exam-9", *in.ServiceReference)
}

func TestRefundRequest_ToUseCaseInput(t *testing.T) {
	req := &RefundRequest{AccountID: "client:c1", Amount: decimal.NewFromInt(3)}

	in := req.ToUseCaseInput()
	assert.Equal(t, domain.KindRefund, in.Kind)
	assert.True(t, in.Amount.Equal(decimal.NewFromInt(3)))
	assert.Nil(t, in.ServiceReference)
}

func TestTransferRequest_ToUseCaseInput(t *testing.T) {
	req := &TransferRequest{FromAccountID: "company:acme", ToAccountID: "client:c1", Amount: decimal.NewFromInt(5), Description: "seat"}

	in := req.ToUseCaseInput()
	assert.Equal(t, "company:acme", in.FromAccountID)
	assert.Equal(t, "client:c1", in.ToAccountID)
	assert.Equal(t, "seat", in.Description)
	assert.True(t, in.Amount.Equal(decimal.NewFromInt(5)))
}

func TestSplitConfigRequest_ToUseCaseInput(t *testing.T) {
	var req SplitConfigRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"service_category": "exam",
		"severity_tier": "urgent",
		"shares": [
			{"recipient_kind": "platform", "percentage": "30"},
			{"recipient_kind": "client", "percentage": "70"}
		]
	}`), &req))

	in := req.ToUseCaseInput()
	assert.Equal(t, "exam", in.ServiceCategory)
	assert.Equal(t, "urgent", in.SeverityTier)
	require.Len(t, in.Shares, 2)
	assert.Equal(t, domain.RecipientPlatform, in.Shares[0].RecipientKind)
	assert.True(t, in.Shares[1].Percentage.Equal(decimal.NewFromInt(70)))
}
