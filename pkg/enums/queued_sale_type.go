package enums

import "fmt"

// QueuedSaleType distinguishes a fresh sale from a resumed held transaction.
type QueuedSaleType string

const (
	QueuedSaleTypeSale       QueuedSaleType = "sale"
	QueuedSaleTypeResumeHeld QueuedSaleType = "resume_held"
)

var validQueuedSaleTypes = []QueuedSaleType{
	QueuedSaleTypeSale,
	QueuedSaleTypeResumeHeld,
}

func (t QueuedSaleType) String() string {
	return string(t)
}

func (t QueuedSaleType) IsValid() bool {
	for _, candidate := range validQueuedSaleTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseQueuedSaleType converts raw input into a QueuedSaleType.
func ParseQueuedSaleType(value string) (QueuedSaleType, error) {
	for _, candidate := range validQueuedSaleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid queued sale type %q", value)
}
