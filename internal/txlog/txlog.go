/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package txlog implements the append-only per-user transaction log:
// tx.data under each org/user directory, plus the per-(org,user) locking
// that makes one sync turn's read-merge-append window atomic.
package txlog

import (
	"bufio"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// stripes is the number of in-process locks; a lock is selected by hashing
// (org,user), so two different users contend for each other's turn only
// when their hashes land on the same stripe.
const stripes = 256

// Store reads and appends per-user transaction logs.
type Store struct {
	root   string
	mtx    [stripes]sync.Mutex
	flocks sync.Map // (org,user) -> *flock.Flock, cached across calls
}

// New returns a Store rooted at dataRoot (the server's data directory).
func New(dataRoot string) *Store {
	return &Store{root: dataRoot}
}

// Lock acquires the exclusive per-(org,user) lock: an in-process stripe
// (cheap, handles same-process contention) layered under an on-disk
// advisory flock (handles multiple server processes sharing a data
// directory). Callers must call the returned Unlock exactly once.
func (s *Store) Lock(org, user string) (unlock func(), err error) {
	idx := stripe(org, user)
	s.mtx[idx].Lock()

	fl, ferr := s.fileLock(org, user)
	if ferr != nil {
		s.mtx[idx].Unlock()
		return nil, ferr
	}
	if err := fl.Lock(); err != nil {
		s.mtx[idx].Unlock()
		return nil, err
	}

	return func() {
		fl.Unlock()
		s.mtx[idx].Unlock()
	}, nil
}

func (s *Store) fileLock(org, user string) (*flock.Flock, error) {
	k := org + "\x00" + user
	if v, ok := s.flocks.Load(k); ok {
		return v.(*flock.Flock), nil
	}
	dir := s.userDir(org, user)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(dir, "tx.lock"))
	actual, _ := s.flocks.LoadOrStore(k, fl)
	return actual.(*flock.Flock), nil
}

func (s *Store) userDir(org, user string) string {
	return filepath.Join(s.root, "orgs", org, "users", user)
}

func (s *Store) dataPath(org, user string) string {
	return filepath.Join(s.userDir(org, user), "tx.data")
}

// ReadAll loads every line of a user's log. A missing file reads as an
// empty log, not an error. Must be called with the user's lock held if
// the result will drive an Append against the same read.
func (s *Store) ReadAll(org, user string) ([]string, error) {
	f, err := os.Open(s.dataPath(org, user))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Append durably adds lines to a user's log. The write is flushed to
// stable storage with File.Sync before Append returns, so a caller that
// releases the lock afterward knows the append already survives a crash.
// If writing or syncing fails, the file is truncated back to its size
// before the call, so a failed Append leaves no partial lines behind.
// Must be called with the user's lock held.
func (s *Store) Append(org, user string, lines []string) (err error) {
	if len(lines) == 0 {
		return nil
	}
	dir := s.userDir(org, user)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	f, err := os.OpenFile(s.dataPath(org, user), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Truncate(fi.Size())
		}
	}()

	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := w.WriteString(l); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

func stripe(org, user string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(org))
	h.Write([]byte{0})
	h.Write([]byte(user))
	return h.Sum32() % stripes
}
