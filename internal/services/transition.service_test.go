package services

import (
	"testing"

	. "turnkeep/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_ForwardSteps(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		role    Role
		allowed bool
	}{
		{"admin releases a waiting schedule", StatusWaiting, StatusReleased, RoleAdmin, true},
		{"manager releases a waiting schedule", StatusWaiting, StatusReleased, RoleManager, true},
		{"cleaner cannot release", StatusWaiting, StatusReleased, RoleCleaner, false},

		{"admin starts cleaning", StatusReleased, StatusCleaning, RoleAdmin, true},
		{"manager starts cleaning", StatusReleased, StatusCleaning, RoleManager, true},
		{"cleaner starts cleaning", StatusReleased, StatusCleaning, RoleCleaner, true},

		{"admin completes", StatusCleaning, StatusCompleted, RoleAdmin, true},
		{"manager completes", StatusCleaning, StatusCompleted, RoleManager, true},
		{"cleaner completes", StatusCleaning, StatusCompleted, RoleCleaner, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := CanTransition(tt.from, tt.to, tt.role)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if tt.allowed {
				assert.Empty(t, decision.Reason)
			} else {
				assert.NotEmpty(t, decision.Reason)
			}
		})
	}
}

func TestCanTransition_CleanerCannotRelease(t *testing.T) {
	decision := CanTransition(StatusWaiting, StatusReleased, RoleCleaner)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "only admin/manager may move a schedule to released", decision.Reason)
}

func TestCanTransition_BackwardMoves(t *testing.T) {
	backward := []struct {
		from Status
		to   Status
	}{
		{StatusReleased, StatusWaiting},
		{StatusCleaning, StatusReleased},
		{StatusCleaning, StatusWaiting},
		{StatusCompleted, StatusCleaning},
		{StatusCompleted, StatusReleased},
		{StatusCompleted, StatusWaiting},
	}

	for _, step := range backward {
		t.Run(string(step.from)+" to "+string(step.to), func(t *testing.T) {
			assert.True(t, CanTransition(step.from, step.to, RoleAdmin).Allowed,
				"admin may revert any distance")

			for _, role := range []Role{RoleManager, RoleCleaner} {
				decision := CanTransition(step.from, step.to, role)
				assert.False(t, decision.Allowed)
				assert.Equal(t, "only admin may revert a schedule", decision.Reason)
			}
		})
	}
}

func TestCanTransition_SkipAheadRejectedForEveryRole(t *testing.T) {
	skips := []struct {
		from Status
		to   Status
	}{
		{StatusWaiting, StatusCleaning},
		{StatusWaiting, StatusCompleted},
		{StatusReleased, StatusCompleted},
	}

	for _, skip := range skips {
		for _, role := range []Role{RoleAdmin, RoleManager, RoleCleaner} {
			decision := CanTransition(skip.from, skip.to, role)
			assert.False(t, decision.Allowed,
				"%s -> %s must be rejected for %s", skip.from, skip.to, role)
			assert.Equal(t, "transition not permitted, follow the flow", decision.Reason)
		}
	}
}

func TestCanTransition_SameStatusRejected(t *testing.T) {
	for _, status := range StatusOrder {
		for _, role := range []Role{RoleAdmin, RoleManager, RoleCleaner} {
			decision := CanTransition(status, status, role)
			assert.False(t, decision.Allowed)
		}
	}
}

func TestCanTransition_UnknownInputs(t *testing.T) {
	t.Run("unknown role is rejected before anything else", func(t *testing.T) {
		decision := CanTransition(StatusWaiting, StatusReleased, Role("ghost"))
		assert.False(t, decision.Allowed)
		assert.Equal(t, "not authenticated", decision.Reason)
	})

	t.Run("unknown target status", func(t *testing.T) {
		decision := CanTransition(StatusWaiting, Status("archived"), RoleAdmin)
		assert.False(t, decision.Allowed)
		assert.Equal(t, "transition not permitted, follow the flow", decision.Reason)
	})

	t.Run("unknown source status", func(t *testing.T) {
		decision := CanTransition(Status("archived"), StatusReleased, RoleAdmin)
		assert.False(t, decision.Allowed)
	})
}

// Exhaustive sweep: every (from, to, role) triple must land on exactly the
// rule set above, so the allow-list can never drift silently.
func TestCanTransition_FullMatrix(t *testing.T) {
	roles := []Role{RoleAdmin, RoleManager, RoleCleaner}

	for _, from := range StatusOrder {
		for _, to := range StatusOrder {
			for _, role := range roles {
				decision := CanTransition(from, to, role)

				var expected bool
				switch {
				case to.Index() == from.Index()+1:
					expected = role != RoleCleaner || to != StatusReleased
				case to.Index() < from.Index():
					expected = role == RoleAdmin
				default:
					expected = false
				}

				assert.Equal(t, expected, decision.Allowed,
					"from=%s to=%s role=%s", from, to, role)
			}
		}
	}
}
