package guardrail

import (
	"context"
	"testing"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConsent_Granted(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)

	result, err := CheckConsent(context.Background(), store, "user-1", "generate_recommendations")

	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.True(t, result.Blocking)
	assert.Equal(t, "consent", result.Gate)
}

func TestCheckConsent_NotGranted(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", false)

	result, err := CheckConsent(context.Background(), store, "user-1", "generate_recommendations")

	require.Error(t, err)
	assert.True(t, common.IsConsentError(err))
	assert.False(t, result.Passed)
	assert.Contains(t, result.Explanation, "not granted consent")
}

func TestCheckConsent_UnknownUserIsFatal(t *testing.T) {
	store := testutil.NewMockStorage()

	result, err := CheckConsent(context.Background(), store, "nobody", "generate_signals")

	require.Error(t, err)
	assert.True(t, common.IsConsentError(err))
	assert.Equal(t, "user not found", result.Explanation)
}

func TestCheckConsent_StoreFailurePropagates(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Err = assert.AnError

	_, err := CheckConsent(context.Background(), store, "user-1", "generate_signals")

	require.Error(t, err)
	assert.False(t, common.IsConsentError(err))
	assert.ErrorIs(t, err, assert.AnError)
}
