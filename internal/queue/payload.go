package queue

import (
	"encoding/json"
	"fmt"

	"github.com/calderapos/register-edge/pkg/types"
)

// CurrentPayloadVersion is stamped on every new queue entry. Older versions
// persisted by previous builds are upgraded on read, never rejected.
//
// Version history:
//
//	1: bare SalePayload JSON
//	2: Envelope wrapping the sale with held-resume reconciliation data
const CurrentPayloadVersion = 2

// Envelope is the durable payload of a queue entry. It is frozen at enqueue
// time and treated as immutable afterwards.
type Envelope struct {
	Sale                types.SalePayload `json:"sale"`
	HeldExpectedVersion *int64            `json:"held_expected_version,omitempty"`
}

// EncodeEnvelope serializes an envelope at the current payload version.
func EncodeEnvelope(env Envelope) (json.RawMessage, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding queue payload: %w", err)
	}
	return raw, nil
}

// DecodeEnvelope upgrades a stored payload to the current version and decodes
// it. Unknown versions are an error: a downgrade after a newer build wrote
// entries must not silently drop sales.
func DecodeEnvelope(version int, raw json.RawMessage) (*Envelope, error) {
	switch version {
	case 1:
		var sale types.SalePayload
		if err := json.Unmarshal(raw, &sale); err != nil {
			return nil, fmt.Errorf("decoding v1 queue payload: %w", err)
		}
		return &Envelope{Sale: sale}, nil

	case CurrentPayloadVersion:
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decoding queue payload: %w", err)
		}
		return &env, nil

	default:
		return nil, fmt.Errorf("unsupported queue payload version %d", version)
	}
}
