package queue

import (
	"testing"

	"github.com/calderapos/register-edge/pkg/enums"
	pkgerrors "github.com/calderapos/register-edge/pkg/errors"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from  enums.SaleSyncStatus
		to    enums.SaleSyncStatus
		legal bool
	}{
		{enums.SaleSyncStatusPending, enums.SaleSyncStatusSyncing, true},
		{enums.SaleSyncStatusSyncing, enums.SaleSyncStatusPending, true},
		{enums.SaleSyncStatusSyncing, enums.SaleSyncStatusFailed, true},
		{enums.SaleSyncStatusSyncing, enums.SaleSyncStatusConflict, true},
		{enums.SaleSyncStatusFailed, enums.SaleSyncStatusPending, true},
		{enums.SaleSyncStatusConflict, enums.SaleSyncStatusPending, true},

		{enums.SaleSyncStatusPending, enums.SaleSyncStatusFailed, false},
		{enums.SaleSyncStatusPending, enums.SaleSyncStatusConflict, false},
		{enums.SaleSyncStatusFailed, enums.SaleSyncStatusSyncing, false},
		{enums.SaleSyncStatusFailed, enums.SaleSyncStatusConflict, false},
		{enums.SaleSyncStatusConflict, enums.SaleSyncStatusSyncing, false},
		{enums.SaleSyncStatusConflict, enums.SaleSyncStatusFailed, false},
		{enums.SaleSyncStatusPending, enums.SaleSyncStatusPending, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.legal {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.legal)
		}
	}
}

func TestValidateTransitionErrors(t *testing.T) {
	err := ValidateTransition(enums.SaleSyncStatusPending, enums.SaleSyncStatusConflict)
	if err == nil {
		t.Fatalf("expected error")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict code, got %v", err)
	}

	if err := ValidateTransition("bogus", enums.SaleSyncStatusPending); err == nil {
		t.Fatalf("expected error for unknown source status")
	}
	if err := ValidateTransition(enums.SaleSyncStatusPending, "bogus"); err == nil {
		t.Fatalf("expected error for unknown target status")
	}
}
