/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package auth

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// startWatch arms an fsnotify watch over root/orgs, descending into every
// directory that exists at startup and adding new ones as they appear.
// fsnotify has no native recursive mode (unlike the teacher's filewatch
// package, which tracks individual files rather than whole subtrees), so
// this walks the tree once and re-arms on Create events for directories.
func (a *Authenticator) startWatch() error {
	orgsRoot := filepath.Join(a.root, "orgs")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	a.watcher = w

	if err := addTree(w, orgsRoot); err != nil {
		w.Close()
		a.watcher = nil
		return err
	}

	a.wg.Add(1)
	go a.watchLoop()
	return nil
}

func addTree(w *fsnotify.Watcher, root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		parent := filepath.Dir(root)
		return w.Add(parent)
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			_ = w.Add(path)
		}
		return nil
	})
}

func (a *Authenticator) watchLoop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev, ok := <-a.watcher.Events:
			if !ok {
				a.dropCache()
				return
			}
			a.handleEvent(ev)
		case _, ok := <-a.watcher.Errors:
			if !ok {
				a.dropCache()
				return
			}
			a.dropCache()
		}
	}
}

func (a *Authenticator) handleEvent(ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = a.watcher.Add(ev.Name)
		}
	}
	a.dropCache()
}

func (a *Authenticator) dropCache() {
	a.mtx.Lock()
	a.cache = make(map[key]entry)
	a.mtx.Unlock()
}
