/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package auth resolves (org, user, key) credentials against the on-disk
// org/user tree and reports access decisions without ever disclosing
// which check actually failed.
package auth

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gravwell/taskd/internal/status"
	tasklog "github.com/gravwell/taskd/log"
)

// Authenticator resolves principals against root/orgs/<org>/users/<user>.
// Reads are cached in memory and invalidated by an fsnotify watch on the
// orgs subtree; the cache is advisory only; a watch failure degrades to
// direct filesystem reads rather than ever serving stale data silently.
type Authenticator struct {
	root   string
	logger *tasklog.Logger

	mtx     sync.RWMutex
	cache   map[key]entry
	cacheOK bool

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type key struct {
	org, user string
}

type entry struct {
	orgSuspended  bool
	userSuspended bool
	credential    string
	found         bool // both org and user directories exist
}

// New builds an Authenticator rooted at dataRoot (the server's configured
// data directory, containing "orgs/"). lgr may be nil.
func New(dataRoot string, lgr *tasklog.Logger) (*Authenticator, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Authenticator{
		root:   dataRoot,
		logger: lgr,
		cache:  make(map[key]entry),
		ctx:    ctx,
		cancel: cancel,
	}
	if err := a.startWatch(); err != nil {
		a.logf("fsnotify watch unavailable, authenticator running uncached: %v", err)
	} else {
		a.cacheOK = true
	}
	return a, nil
}

// Close stops the background filesystem watch.
func (a *Authenticator) Close() error {
	a.cancel()
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.wg.Wait()
	return nil
}

// Authenticate resolves org/user/key. It returns nil on success, or a
// *status.Error carrying 430 (unknown org/user or bad credential) or 431
// (org or user suspended). The supplied key is never logged.
func (a *Authenticator) Authenticate(org, user, key string) error {
	e, err := a.lookup(org, user)
	if err != nil {
		a.logf("authenticate lookup failed for org=%s user=%s: %v", org, user, err)
		return status.Canonical(status.AccessDenied)
	}
	if !e.found {
		a.logf("authenticate denied: unknown principal org=%s user=%s", org, user)
		return status.Canonical(status.AccessDenied)
	}
	if e.orgSuspended || e.userSuspended {
		a.logf("authenticate denied: suspended principal org=%s user=%s", org, user)
		return status.Canonical(status.AccountSuspended)
	}
	if e.credential == "" || e.credential != key {
		a.logf("authenticate denied: credential mismatch org=%s user=%s", org, user)
		return status.Canonical(status.AccessDenied)
	}
	return nil
}

func (a *Authenticator) logf(msg string, args ...interface{}) {
	if a.logger == nil {
		return
	}
	a.logger.Info(fmt.Sprintf(msg, args...))
}

func (a *Authenticator) lookup(org, user string) (entry, error) {
	k := key{org: org, user: user}

	if a.cacheOK {
		a.mtx.RLock()
		e, ok := a.cache[k]
		a.mtx.RUnlock()
		if ok {
			return e, nil
		}
	}

	e, err := a.resolve(org, user)
	if err != nil {
		return entry{}, err
	}

	if a.cacheOK {
		a.mtx.Lock()
		a.cache[k] = e
		a.mtx.Unlock()
	}
	return e, nil
}

// resolve performs the three-step directory/file check directly against
// the filesystem, with no cache involvement.
func (a *Authenticator) resolve(org, user string) (entry, error) {
	var e entry

	orgPath := filepath.Join(a.root, "orgs", org)
	if !isDir(orgPath) {
		return e, nil // not found; e.found stays false
	}
	e.orgSuspended = exists(filepath.Join(orgPath, "suspended"))

	userPath := filepath.Join(orgPath, "users", user)
	if !isDir(userPath) {
		return e, nil
	}
	e.userSuspended = exists(filepath.Join(userPath, "suspended"))
	e.found = true

	if e.orgSuspended || e.userSuspended {
		return e, nil
	}

	cred, err := readCredential(filepath.Join(userPath, "config"))
	if err != nil {
		return e, err
	}
	e.credential = cred
	return e, nil
}

// readCredential extracts the value of a "key=<credential>" line from a
// user's config file.
func readCredential(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "key=") {
			continue
		}
		return strings.TrimPrefix(line, "key="), nil
	}
	return "", sc.Err()
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
