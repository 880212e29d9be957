// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by a [Store] for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// # Session Data Access

// Store persists encoded session payloads by identifier.
type Store interface {

	/*
		Load returns the payload stored under id.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - []byte: The encoded session
		  - error: ErrNotFound or backend failures
	*/
	Load(context context.Context, id string) ([]byte, error)

	/*
		Save writes payload under id, expiring after ttl.

		Parameters:
		  - context: context.Context
		  - id: string
		  - payload: []byte
		  - ttl: time.Duration

		Returns:
		  - error: Backend failures
	*/
	Save(context context.Context, id string, payload []byte, ttl time.Duration) error

	/*
		Delete removes id. Deleting an unknown id is not an error.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Backend failures
	*/
	Delete(context context.Context, id string) error

	/*
		Ping verifies that the backend is reachable.
	*/
	Ping(context context.Context) error
}

// # Memory Store

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Sessions are lost on restart
// and are not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// Load implements [Store].
func (store *MemoryStore) Load(_ context.Context, id string) ([]byte, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, ok := store.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !store.now().Before(entry.expiresAt) {
		delete(store.entries, id)
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.payload...), nil
}

// Save implements [Store].
func (store *MemoryStore) Save(_ context.Context, id string, payload []byte, ttl time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.entries[id] = memoryEntry{
		payload:   append([]byte(nil), payload...),
		expiresAt: store.now().Add(ttl),
	}
	return nil
}

// Delete implements [Store].
func (store *MemoryStore) Delete(_ context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.entries, id)
	return nil
}

// Ping implements [Store].
func (*MemoryStore) Ping(context.Context) error { return nil }

// Prune removes expired entries and returns how many were dropped.
func (store *MemoryStore) Prune(context.Context) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := store.now()
	removed := 0
	for id, entry := range store.entries {
		if !now.Before(entry.expiresAt) {
			delete(store.entries, id)
			removed++
		}
	}
	return removed, nil
}
