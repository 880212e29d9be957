// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session implements server-side browser sessions.

A browser carries only a signed cookie holding an opaque session identifier;
everything else lives in a [Store] (memory, filesystem or Redis).

# State

The identity part of a session is a tagged union:

	Anonymous | FlowPending{Flow} | Authenticated{Method, SubjectID, Email, DisplayName, UserID?}

Exactly one variant holds at a time. Flash messages, the federated logout hint
and the second-factor setup live beside the state and follow their own rules:
flashes survive [Session.ClearPreservingMessages], everything else does not.
*/
package session

import (
	"github.com/letsworkapps/authportal/internal/federated"
)

// Phase names the active variant of [State].
type Phase string

// Phases of the sign-in state machine.
const (
	PhaseAnonymous     Phase = "anonymous"
	PhaseFlowPending   Phase = "flow_pending"
	PhaseAuthenticated Phase = "authenticated"
)

// State is one of [Anonymous], [FlowPending] or [Authenticated].
type State interface {
	Phase() Phase
}

// Anonymous is a session without identity or pending flow.
type Anonymous struct{}

// Phase implements [State].
func (Anonymous) Phase() Phase { return PhaseAnonymous }

// FlowPending holds the one in-flight federated exchange.
type FlowPending struct {
	Flow federated.FlowState `json:"flow"`
}

// Phase implements [State].
func (FlowPending) Phase() Phase { return PhaseFlowPending }

// Authenticated is a signed-in browser.
type Authenticated struct {
	// Method is constants.LoginMethodLocal or constants.LoginMethodFederated.
	Method      string `json:"method"`
	SubjectID   string `json:"subject_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	// UserID is set for every login that resolved to a local account row.
	UserID *int64 `json:"user_id,omitempty"`
}

// Phase implements [State].
func (Authenticated) Phase() Phase { return PhaseAuthenticated }

// Flash is a one-time notice displayed on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Flash categories understood by the templates.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// FederatedHints are remembered across a federated sign-in for logout.
type FederatedHints struct {
	LastEmail string `json:"last_email,omitempty"`
	IDToken   string `json:"id_token,omitempty"`
}

// TwoFactor holds the TOTP enrolment of this session.
type TwoFactor struct {
	Secret   string `json:"secret,omitempty"`
	Verified bool   `json:"verified,omitempty"`
}

// Session is the decoded server-side record of one browser.
//
// # Concurrency
//
// A Session is owned by the request that loaded it and is not safe for
// concurrent use.
type Session struct {
	id         string
	previousID string
	isNew      bool
	modified   bool

	state     State
	flashes   []Flash
	federated FederatedHints
	twoFactor TwoFactor
}

// New returns an empty anonymous session. Its identifier is assigned on first save.
func New() *Session {
	return &Session{isNew: true, state: Anonymous{}}
}

// ID returns the current session identifier, empty until first saved.
func (s *Session) ID() string { return s.id }

// State returns the current identity variant.
func (s *Session) State() State { return s.state }

// Identity returns the authenticated identity, if any.
func (s *Session) Identity() (Authenticated, bool) {
	identity, ok := s.state.(Authenticated)
	return identity, ok
}

// IsAuthenticated reports whether the session holds an identity.
func (s *Session) IsAuthenticated() bool {
	_, ok := s.state.(Authenticated)
	return ok
}

// Authenticate replaces any previous state with identity. A pending flow is
// dropped and the identifier rotates to prevent session fixation.
func (s *Session) Authenticate(identity Authenticated) {
	s.state = identity
	s.twoFactor = TwoFactor{}
	s.rotate()
	s.modified = true
}

// StartFlow records flow as the one in-flight federated exchange, replacing
// any earlier one. An authenticated session becomes anonymous.
func (s *Session) StartFlow(flow federated.FlowState) {
	s.state = FlowPending{Flow: flow}
	s.modified = true
}

// ConsumeFlow removes and returns the pending flow. The session is anonymous
// afterwards, whatever the outcome of the exchange.
func (s *Session) ConsumeFlow() (federated.FlowState, bool) {
	pending, ok := s.state.(FlowPending)
	if ok {
		s.state = Anonymous{}
		s.modified = true
	}
	return pending.Flow, ok
}

// ClearPreservingMessages drops identity, flow, federated hints and the
// second factor, keeping pending flash messages. The identifier rotates.
func (s *Session) ClearPreservingMessages() {
	s.state = Anonymous{}
	s.federated = FederatedHints{}
	s.twoFactor = TwoFactor{}
	s.rotate()
	s.modified = true
}

// AddFlash queues a message for the next rendered page.
func (s *Session) AddFlash(category, message string) {
	s.flashes = append(s.flashes, Flash{Category: category, Message: message})
	s.modified = true
}

// PopFlashes returns and clears the queued messages.
func (s *Session) PopFlashes() []Flash {
	if len(s.flashes) == 0 {
		return nil
	}
	flashes := s.flashes
	s.flashes = nil
	s.modified = true
	return flashes
}

// Federated returns the remembered federated hints.
func (s *Session) Federated() FederatedHints { return s.federated }

// SetFederated stores the federated hints.
func (s *Session) SetFederated(hints FederatedHints) {
	s.federated = hints
	s.modified = true
}

// TwoFactor returns the TOTP enrolment state.
func (s *Session) TwoFactor() TwoFactor { return s.twoFactor }

// SetTwoFactor stores the TOTP enrolment state.
func (s *Session) SetTwoFactor(twoFactor TwoFactor) {
	s.twoFactor = twoFactor
	s.modified = true
}

// rotate schedules the current identifier for deletion; the manager assigns
// a fresh one on save.
func (s *Session) rotate() {
	if s.id != "" && s.previousID == "" {
		s.previousID = s.id
	}
	s.id = ""
}
