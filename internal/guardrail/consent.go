// Package guardrail implements the three gates a recommendation candidate
// must clear before emission: consent (blocking, once per request),
// eligibility (blocking, per candidate), and tone (advisory). Gates are
// pure predicates composed by the caller; none of them retries.
package guardrail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// CheckConsent verifies the user's consent flag. It must run before any
// signal detector executes, since it protects data processing, not just
// recommendation output. An absent user is always fatal, never a soft
// warning. The returned error is a ConsentError on any refusal; the
// GuardrailResult records the verdict for the decision trace.
func CheckConsent(ctx context.Context, store service.Storage, userID, operation string) (model.GuardrailResult, error) {
	result := model.GuardrailResult{
		Gate:        model.GateConsent,
		Blocking:    true,
		EvaluatedAt: time.Now(),
	}

	granted, err := store.GetConsent(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			result.Explanation = "user not found"
			return result, common.NewConsentError(userID, operation, "user not found")
		}
		result.Explanation = "consent lookup failed"
		return result, fmt.Errorf("failed to look up consent for user %s: %w", userID, err)
	}

	if !granted {
		result.Explanation = "user has not granted consent for data processing"
		return result, common.NewConsentError(userID, operation, "consent not granted")
	}

	result.Passed = true
	result.Explanation = "user consent verified"
	return result, nil
}
