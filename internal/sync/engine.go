/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package sync

import (
	"strings"

	"github.com/google/uuid"

	"github.com/gravwell/taskd/internal/record"
	"github.com/gravwell/taskd/internal/status"
)

// Engine runs one sync turn against an already-loaded copy of a user's
// log. It has no storage dependency of its own: the dispatcher is
// responsible for holding the per-user lock, reading the log, calling
// Sync, and appending Result.Append if Result.Code is success.
type Engine struct{}

// New returns a ready Engine. Engine holds no state between calls.
func New() *Engine {
	return &Engine{}
}

// Result is everything one sync turn produces: the response code,
// the response payload, and the lines (if any) to append to the log.
// Append is empty whenever Code is NoChange.
type Result struct {
	Code    status.Code
	Payload []byte
	Append  []string
}

// Sync runs the engine against log (the user's current, fully loaded
// transaction log) and a decoded request payload. It never mutates log;
// the caller commits Result.Append itself while still holding the lock
// that guarded the read.
func (e *Engine) Sync(log []string, payload []byte) (Result, error) {
	clientLines, cursor := parsePayload(payload)

	branch, err := branchPoint(log, cursor)
	if err != nil {
		return Result{}, err
	}

	subset, err := extractSubset(log, branch)
	if err != nil {
		return Result{}, err
	}

	clientTasks, err := decodeAndValidate(clientLines)
	if err != nil {
		return Result{}, err
	}

	merged := make(map[string]bool, len(clientTasks))
	superseded := make(map[string]bool, len(clientTasks))
	var appendLines []string
	var additions []string

	for _, t := range clientTasks {
		u := t.UUID()
		if merged[u] {
			continue
		}
		merged[u] = true

		if !subsetHasUUID(subset, u) {
			line, err := record.Encode(t)
			if err != nil {
				return Result{}, status.New(status.SyntaxError, err.Error())
			}
			appendLines = append(appendLines, line)
			additions = append(additions, line)
			continue
		}

		superseded[u] = true
		ancestorIdx, ok := findAncestorIndex(log, branch-1, u)
		if !ok {
			return Result{}, status.New(status.SyntaxError, "no common ancestor for task "+u)
		}
		ancestor, err := record.Decode(log[ancestorIdx])
		if err != nil {
			return Result{}, status.New(status.SyntaxError, "corrupt log entry: "+err.Error())
		}

		clientMods := tasksByUUID(clientTasks, u)
		serverMods, err := decodeModsByUUID(log, ancestorIdx+1, u)
		if err != nil {
			return Result{}, err
		}

		combined := zipperWalk(ancestor, clientMods, serverMods)
		line, err := record.Encode(combined)
		if err != nil {
			return Result{}, status.New(status.SyntaxError, err.Error())
		}
		appendLines = append(appendLines, line)
		additions = append(additions, line)
	}

	// recordContent is every line the client hasn't seen: subset entries
	// not superseded by a merge this turn, plus anything freshly appended.
	var recordContent []string
	for _, t := range subset {
		if superseded[t.UUID()] {
			continue
		}
		line, err := record.Encode(t)
		if err != nil {
			return Result{}, status.New(status.SyntaxError, err.Error())
		}
		recordContent = append(recordContent, line)
	}
	recordContent = append(recordContent, additions...)

	if len(appendLines) == 0 {
		// Nothing changed the log this turn: reuse the latest key, if any.
		key := latestSyncKey(log)
		if key == "" {
			return Result{Code: status.NoChange}, nil
		}
		if len(recordContent) == 0 {
			return Result{Code: status.NoChange, Payload: []byte(key + "\n")}, nil
		}
		return Result{Code: status.OK, Payload: buildPayload(recordContent, key)}, nil
	}

	newKey := uuid.NewString()
	appendLines = append(appendLines, newKey)
	return Result{Code: status.OK, Payload: buildPayload(recordContent, newKey), Append: appendLines}, nil
}

func buildPayload(records []string, key string) []byte {
	var buf strings.Builder
	for _, line := range records {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteString(key)
	buf.WriteByte('\n')
	return []byte(buf.String())
}

// decodeAndValidate decodes every client record line, mints a uuid for
// any that arrived without one, and validates+normalizes the result.
// A failure here aborts the whole turn; nothing has been appended yet.
func decodeAndValidate(lines []string) ([]record.Task, error) {
	tasks := make([]record.Task, 0, len(lines))
	for _, line := range lines {
		t, err := record.Decode(line)
		if err != nil {
			return nil, status.New(status.SyntaxError, "malformed record: "+err.Error())
		}
		if t.UUID() == "" {
			t.Set(record.AttrUUID, uuid.NewString())
		}
		t, err = validateAndNormalize(t)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// latestSyncKey returns the most recent sync-key line in log, or "" if
// the log has never had one -- the degenerate no-op-on-an-empty-log case.
func latestSyncKey(log []string) string {
	for i := len(log) - 1; i >= 0; i-- {
		if !isRecordLine(log[i]) {
			return log[i]
		}
	}
	return ""
}
