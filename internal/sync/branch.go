/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package sync

import (
	"github.com/gravwell/taskd/internal/record"
	"github.com/gravwell/taskd/internal/status"
)

// branchPoint locates the index in log immediately after the sync-key
// line matching cursor. An empty cursor means "first sync": the whole log
// is returned, so branch point is 0. A non-empty cursor that isn't found
// anywhere in the log is a protocol error.
func branchPoint(log []string, cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	for i, l := range log {
		if l == cursor {
			return i + 1, nil
		}
	}
	return 0, status.New(status.SyntaxError, "sync key not found")
}

// extractSubset decodes every record line in log at or after branch,
// preserving order. Sync-key lines in that range are skipped; they remain
// in the underlying log but don't contribute records to the subset.
func extractSubset(log []string, branch int) ([]record.Task, error) {
	var subset []record.Task
	for i := branch; i < len(log); i++ {
		if !isRecordLine(log[i]) {
			continue
		}
		t, err := record.Decode(log[i])
		if err != nil {
			return nil, status.New(status.SyntaxError, "corrupt log entry: "+err.Error())
		}
		subset = append(subset, t)
	}
	return subset, nil
}

// findAncestorIndex searches log backwards from start (inclusive) for the
// newest record line with the given uuid.
func findAncestorIndex(log []string, start int, uuid string) (int, bool) {
	for i := start; i >= 0; i-- {
		if !isRecordLine(log[i]) {
			continue
		}
		t, err := record.Decode(log[i])
		if err != nil {
			continue
		}
		if t.UUID() == uuid {
			return i, true
		}
	}
	return 0, false
}

// decodeModsByUUID decodes every record line in log at or after start
// with the given uuid, in log order -- the "server_mods" sequence feeding
// the zipper walk.
func decodeModsByUUID(log []string, start int, uuid string) ([]record.Task, error) {
	var mods []record.Task
	for i := start; i < len(log); i++ {
		if !isRecordLine(log[i]) {
			continue
		}
		t, err := record.Decode(log[i])
		if err != nil {
			return nil, status.New(status.SyntaxError, "corrupt log entry: "+err.Error())
		}
		if t.UUID() == uuid {
			mods = append(mods, t)
		}
	}
	return mods, nil
}

func subsetHasUUID(subset []record.Task, uuid string) bool {
	for _, t := range subset {
		if t.UUID() == uuid {
			return true
		}
	}
	return false
}

func tasksByUUID(tasks []record.Task, uuid string) []record.Task {
	var out []record.Task
	for _, t := range tasks {
		if t.UUID() == uuid {
			out = append(out, t)
		}
	}
	return out
}
