package queue

import (
	"fmt"

	"github.com/calderapos/register-edge/pkg/enums"
	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
)

// legalTransitions is the sync status state machine. Synced entries are
// deleted rather than transitioned, and a conflict resolved as "skip" is also
// a deletion.
var legalTransitions = map[enums.SaleSyncStatus][]enums.SaleSyncStatus{
	enums.SaleSyncStatusPending:  {enums.SaleSyncStatusSyncing},
	enums.SaleSyncStatusSyncing:  {enums.SaleSyncStatusPending, enums.SaleSyncStatusFailed, enums.SaleSyncStatusConflict},
	enums.SaleSyncStatusFailed:   {enums.SaleSyncStatusPending},
	enums.SaleSyncStatusConflict: {enums.SaleSyncStatusPending},
}

// CanTransition reports whether moving a queue entry from one status to
// another is legal.
func CanTransition(from, to enums.SaleSyncStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a state-conflict error for illegal moves so a
// buggy caller can never corrupt an entry's lifecycle.
func ValidateTransition(from, to enums.SaleSyncStatus) error {
	if !from.IsValid() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("unknown sync status %q", from))
	}
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("unknown sync status %q", to))
	}
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("illegal sync transition %s -> %s", from, to))
	}
	return nil
}
