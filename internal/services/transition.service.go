package services

import (
	"fmt"
	"strings"

	. "turnkeep/internal/models"
)

// Decision is the outcome of a transition check. Rejections are expected,
// user-facing results, not errors: Reason is shown inline to the actor.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// statusEntryRoles lists, per status, the roles allowed to move a schedule
// INTO it via a forward step. Waiting has no entry list: it is the initial
// status and is re-entered only through an admin revert.
var statusEntryRoles = map[Status][]Role{
	StatusReleased:  {RoleAdmin, RoleManager},
	StatusCleaning:  {RoleAdmin, RoleManager, RoleCleaner},
	StatusCompleted: {RoleAdmin, RoleManager, RoleCleaner},
}

// CanTransition decides whether an actor with the given role may move a
// schedule from one status to another. Pure; no side effects.
//
// Forward moves are allowed one step at a time, gated by statusEntryRoles.
// Backward moves of any distance are reserved for admins. Anything else
// (skip-ahead, same status, unknown status) is rejected.
func CanTransition(from, to Status, role Role) Decision {
	if !role.Valid() {
		return Decision{Allowed: false, Reason: "not authenticated"}
	}

	fromIdx := from.Index()
	toIdx := to.Index()
	if fromIdx < 0 || toIdx < 0 {
		return Decision{Allowed: false, Reason: "transition not permitted, follow the flow"}
	}

	switch {
	case toIdx == fromIdx+1:
		allowed := statusEntryRoles[to]
		for _, r := range allowed {
			if r == role {
				return Decision{Allowed: true}
			}
		}
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("only %s may move a schedule to %s", roleList(allowed), to),
		}

	case toIdx < fromIdx:
		if role == RoleAdmin {
			return Decision{Allowed: true}
		}
		return Decision{Allowed: false, Reason: "only admin may revert a schedule"}

	default:
		return Decision{Allowed: false, Reason: "transition not permitted, follow the flow"}
	}
}

func roleList(roles []Role) string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return strings.Join(names, "/")
}
