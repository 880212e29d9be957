// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	fileSuffix        = ".session"
	lockSuffix        = ".lock"
	lockTimeout       = 2 * time.Second
	lockRetryInterval = 20 * time.Millisecond
	// orphanLockAge is how long a lock file without a session file is kept.
	orphanLockAge = time.Hour
)

// fileRecord is the on-disk form of one session.
type fileRecord struct {
	ExpiresAt time.Time `json:"expires_at"`
	Payload   []byte    `json:"payload"`
}

// FileStore keeps one file per session in a directory. File names are the
// SHA-256 of the identifier, so a directory listing never reveals live
// identifiers. Access to a file is serialized with an advisory lock, which
// lets several processes share the directory.
//
// Lock files are never removed while their session file exists. Unlinking a
// lock that another process has already opened would let two holders lock
// different inodes of the same path. Orphaned locks are swept by Prune once
// they are older than orphanLockAge.
type FileStore struct {
	dir string
	now func() time.Time
}

// NewFileStore creates the directory if needed and returns a [FileStore].
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file_session_store_init_failed: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Load implements [Store].
func (store *FileStore) Load(context context.Context, id string) ([]byte, error) {
	var payload []byte

	err := store.withLock(context, store.baseName(id), func(path string) error {
		record, err := readRecord(path)
		if err != nil {
			return err
		}
		if !store.now().Before(record.ExpiresAt) {
			_ = os.Remove(path)
			return ErrNotFound
		}
		payload = record.Payload
		return nil
	})
	if err != nil {
		return nil, err
	}

	return payload, nil
}

// Save implements [Store].
func (store *FileStore) Save(context context.Context, id string, payload []byte, ttl time.Duration) error {
	data, err := json.Marshal(fileRecord{ExpiresAt: store.now().Add(ttl), Payload: payload})
	if err != nil {
		return fmt.Errorf("file_session_store_save_failed: %w", err)
	}

	return store.withLock(context, store.baseName(id), func(path string) error {
		temp, err := os.CreateTemp(store.dir, ".tmp-*")
		if err != nil {
			return fmt.Errorf("file_session_store_save_failed: %w", err)
		}
		tempPath := temp.Name()

		if _, err := temp.Write(data); err != nil {
			_ = temp.Close()
			_ = os.Remove(tempPath)
			return fmt.Errorf("file_session_store_save_failed: %w", err)
		}
		if err := temp.Close(); err != nil {
			_ = os.Remove(tempPath)
			return fmt.Errorf("file_session_store_save_failed: %w", err)
		}
		if err := os.Rename(tempPath, path); err != nil {
			_ = os.Remove(tempPath)
			return fmt.Errorf("file_session_store_save_failed: %w", err)
		}
		return nil
	})
}

// Delete implements [Store].
func (store *FileStore) Delete(context context.Context, id string) error {
	return store.withLock(context, store.baseName(id), func(path string) error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file_session_store_delete_failed: %w", err)
		}
		return nil
	})
}

// Ping implements [Store] by checking the directory is still writable.
func (store *FileStore) Ping(context.Context) error {
	scratch, err := os.CreateTemp(store.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("file_session_store_ping_failed: %w", err)
	}
	name := scratch.Name()
	_ = scratch.Close()
	return os.Remove(name)
}

// Prune removes expired session files and old orphaned lock files. It returns
// how many sessions were dropped.
func (store *FileStore) Prune(context context.Context) (int, error) {
	entries, err := os.ReadDir(store.dir)
	if err != nil {
		return 0, fmt.Errorf("file_session_store_prune_failed: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if context.Err() != nil {
			return removed, context.Err()
		}
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), lockSuffix) {
			store.removeOrphanLock(entry)
			continue
		}
		if !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}

		base := strings.TrimSuffix(entry.Name(), fileSuffix)
		err := store.withLock(context, base, func(path string) error {
			record, err := readRecord(path)
			if err != nil && !errors.Is(err, ErrNotFound) {
				// Unreadable files are garbage as well.
				return os.Remove(path)
			}
			if err == nil && store.now().Before(record.ExpiresAt) {
				return nil
			}
			removed++
			return os.Remove(path)
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("file_session_store_prune_failed: %w", err)
		}
	}

	return removed, nil
}

// removeOrphanLock deletes a lock file whose session file is gone and which
// has not been touched for orphanLockAge.
func (store *FileStore) removeOrphanLock(entry os.DirEntry) {
	base := strings.TrimSuffix(entry.Name(), lockSuffix)
	if _, err := os.Stat(filepath.Join(store.dir, base+fileSuffix)); !errors.Is(err, os.ErrNotExist) {
		return
	}

	info, err := entry.Info()
	if err != nil || store.now().Sub(info.ModTime()) < orphanLockAge {
		return
	}
	_ = os.Remove(filepath.Join(store.dir, entry.Name()))
}

// baseName maps an identifier onto its file name without suffix.
func (*FileStore) baseName(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// withLock runs fn while holding the advisory lock of the session file.
func (store *FileStore) withLock(ctx context.Context, base string, fn func(path string) error) error {
	fileLock := flock.New(filepath.Join(store.dir, base+lockSuffix))
	defer func() { _ = fileLock.Unlock() }()

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("file_session_store_lock_failed: %w", err)
	}
	if !locked {
		return fmt.Errorf("file_session_store_lock_failed: timeout after %v", lockTimeout)
	}

	return fn(filepath.Join(store.dir, base+fileSuffix))
}

func readRecord(path string) (*fileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("file_session_store_read_failed: %w", err)
	}

	var record fileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("file_session_store_read_failed: %w", err)
	}
	return &record, nil
}
