package enums

import "fmt"

// SaleSyncStatus tracks where a queued sale sits in its sync lifecycle.
type SaleSyncStatus string

const (
	SaleSyncStatusPending  SaleSyncStatus = "pending"
	SaleSyncStatusSyncing  SaleSyncStatus = "syncing"
	SaleSyncStatusFailed   SaleSyncStatus = "failed"
	SaleSyncStatusConflict SaleSyncStatus = "conflict"
)

var validSaleSyncStatuses = []SaleSyncStatus{
	SaleSyncStatusPending,
	SaleSyncStatusSyncing,
	SaleSyncStatusFailed,
	SaleSyncStatusConflict,
}

// String implements fmt.Stringer.
func (s SaleSyncStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleSyncStatus.
func (s SaleSyncStatus) IsValid() bool {
	for _, candidate := range validSaleSyncStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleSyncStatus converts raw input into a SaleSyncStatus.
func ParseSaleSyncStatus(value string) (SaleSyncStatus, error) {
	for _, candidate := range validSaleSyncStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale sync status %q", value)
}
