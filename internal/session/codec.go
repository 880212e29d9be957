// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"encoding/json"
	"fmt"

	"github.com/letsworkapps/authportal/internal/federated"
)

// envelope is the explicit wire form of a [Session]. Exactly one of Flow and
// Identity is set, matching Phase.
type envelope struct {
	Phase     Phase                `json:"phase"`
	Flow      *federated.FlowState `json:"flow,omitempty"`
	Identity  *Authenticated       `json:"identity,omitempty"`
	Flashes   []Flash              `json:"flashes,omitempty"`
	Federated FederatedHints       `json:"federated"`
	TwoFactor TwoFactor            `json:"two_factor"`
}

// Encode serializes the session payload. The identifier is not part of it.
func Encode(s *Session) ([]byte, error) {
	record := envelope{
		Phase:     s.state.Phase(),
		Flashes:   s.flashes,
		Federated: s.federated,
		TwoFactor: s.twoFactor,
	}

	switch state := s.state.(type) {
	case Anonymous:
	case FlowPending:
		flow := state.Flow
		record.Flow = &flow
	case Authenticated:
		identity := state
		record.Identity = &identity
	default:
		return nil, fmt.Errorf("session: unknown state %T", s.state)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("session_encode_failed: %w", err)
	}
	return payload, nil
}

// Decode parses a payload written by [Encode] into a session with the given id.
func Decode(id string, payload []byte) (*Session, error) {
	var record envelope
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("session_decode_failed: %w", err)
	}

	s := &Session{
		id:        id,
		flashes:   record.Flashes,
		federated: record.Federated,
		twoFactor: record.TwoFactor,
	}

	switch record.Phase {
	case PhaseAnonymous:
		s.state = Anonymous{}
	case PhaseFlowPending:
		if record.Flow == nil {
			return nil, fmt.Errorf("session_decode_failed: %s without flow", record.Phase)
		}
		s.state = FlowPending{Flow: *record.Flow}
	case PhaseAuthenticated:
		if record.Identity == nil {
			return nil, fmt.Errorf("session_decode_failed: %s without identity", record.Phase)
		}
		s.state = *record.Identity
	default:
		return nil, fmt.Errorf("session_decode_failed: unknown phase %q", record.Phase)
	}

	return s, nil
}
