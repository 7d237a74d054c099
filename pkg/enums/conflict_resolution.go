package enums

import "fmt"

// ConflictResolution records the operator's decision for a conflicted sale.
type ConflictResolution string

const (
	ConflictResolutionOverwrite ConflictResolution = "overwrite"
	ConflictResolutionSkip      ConflictResolution = "skip"
	ConflictResolutionManual    ConflictResolution = "manual"
)

var validConflictResolutions = []ConflictResolution{
	ConflictResolutionOverwrite,
	ConflictResolutionSkip,
	ConflictResolutionManual,
}

func (r ConflictResolution) String() string {
	return string(r)
}

func (r ConflictResolution) IsValid() bool {
	for _, candidate := range validConflictResolutions {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseConflictResolution converts raw input into a ConflictResolution.
func ParseConflictResolution(value string) (ConflictResolution, error) {
	for _, candidate := range validConflictResolutions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conflict resolution %q", value)
}
