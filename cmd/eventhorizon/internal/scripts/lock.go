// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scripts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// lockPollInterval is how often a blocked Acquire retries flock.
const lockPollInterval = 25 * time.Millisecond

// ErrLockHeld is returned when the context ends while another process
// holds a kind's lock.
type ErrLockHeld struct {
	HolderPID int
	LockPath  string
}

func (e *ErrLockHeld) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("script lock %s held by PID %d", filepath.Base(e.LockPath), e.HolderPID)
	}
	return fmt.Sprintf("script lock %s held by another process (check: lsof %s)", filepath.Base(e.LockPath), e.LockPath)
}

// FileLock is an advisory flock(2) lock on "<dir>/<name>.lock" with the
// holder's pid recorded in "<dir>/<name>.owner".
//
// # Thread Safety
//
// A FileLock is not safe for concurrent use; the Supervisor guards each
// one with its in-process semaphore. Two FileLocks on the same path
// exclude each other even inside one process, since flock binds to the
// open file description.
type FileLock struct {
	lockPath  string
	ownerPath string
	file      *os.File
}

// NewFileLock creates an unlocked FileLock.
func NewFileLock(dir, name string) *FileLock {
	return &FileLock{
		lockPath:  filepath.Join(dir, name+".lock"),
		ownerPath: filepath.Join(dir, name+".owner"),
	}
}

// Acquire blocks until the lock is held or ctx ends.
func (l *FileLock) Acquire(ctx context.Context) error {
	if l.file != nil {
		return nil
	}

	f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file %s: %w", l.lockPath, err)
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			f.Close()
			return fmt.Errorf("failed to acquire lock %s: %w", l.lockPath, err)
		}
		select {
		case <-ctx.Done():
			f.Close()
			return &ErrLockHeld{HolderPID: l.HolderPID(), LockPath: l.lockPath}
		case <-ticker.C:
		}
	}

	l.file = f
	// The owner file is informational; failing to write it does not
	// invalidate the lock.
	_ = os.WriteFile(l.ownerPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
	return nil
}

// Release unlocks. Safe to call when not held.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}
	os.Remove(l.ownerPath)
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// IsHeld reports whether this FileLock holds the lock.
func (l *FileLock) IsHeld() bool {
	return l.file != nil
}

// HolderPID returns the pid recorded by the current holder, or 0.
func (l *FileLock) HolderPID() int {
	data, err := os.ReadFile(l.ownerPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
