package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusAccepted, true},
		{OrderStatusPending, OrderStatusRejected, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusAccepted, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusPaused, false},
		{OrderStatusPaused, OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_Pausable(t *testing.T) {
	assert.True(t, OrderStatusPending.IsPausable())
	assert.True(t, OrderStatusShipped.IsPausable())
	assert.False(t, OrderStatusDelivered.IsPausable())
	assert.False(t, OrderStatusPaused.IsPausable())
	assert.True(t, OrderStatusCancelled.IsTerminal())
}

func TestNewOrderStatus(t *testing.T) {
	s, err := NewOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, s)

	_, err = NewOrderStatus("lost")
	assert.Error(t, err)
}

func TestVerificationStatusSets(t *testing.T) {
	assert.True(t, VerificationAppeal.In(DecisionSources))
	assert.False(t, VerificationApproved.In(DecisionSources))
	assert.False(t, VerificationRejected.In(RequestMoreInfoSources))
	assert.True(t, VerificationFlagged.In(AppealSources))
	assert.False(t, VerificationPending.In(AppealSources))

	_, err := NewVerificationStatus("reinstated")
	assert.NoError(t, err)
	_, err = NewVerificationStatus("done")
	assert.Error(t, err)
}

func TestReportStatus(t *testing.T) {
	assert.True(t, ReportStatusOpen.IsActionable())
	assert.True(t, ReportStatusPending.IsActionable())
	assert.False(t, ReportStatusValidated.IsActionable())
	assert.Equal(t, []string{"pending", "open"}, Strings(ActionableReportStatuses))
}

func TestMoney(t *testing.T) {
	price, err := NewMoney(12.5, "")
	require.NoError(t, err)
	assert.Equal(t, "RUB", price.Currency)
	assert.Equal(t, 37.5, price.Times(3).Amount)

	_, err = NewMoney(-1, "RUB")
	assert.Error(t, err)

	assert.Equal(t, 0, ClampDiscount(-5))
	assert.Equal(t, 90, ClampDiscount(95))
	assert.Equal(t, 15, ClampDiscount(15))
}

func TestVerificationStatus_UserFacing(t *testing.T) {
	assert.Equal(t, "verified", VerificationApproved.UserFacing())
	assert.Equal(t, "verified", VerificationReinstated.UserFacing())
	assert.Equal(t, "rejected", VerificationRejected.UserFacing())
	for _, s := range []VerificationStatus{VerificationPending, VerificationFlagged, VerificationAppeal, VerificationAwaitingSecondApproval} {
		assert.Equal(t, "pending", s.UserFacing(), string(s))
	}
	assert.True(t, VerificationReinstated.GrantsVerification())
	assert.False(t, VerificationAppeal.GrantsVerification())
}
