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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gravwell/taskd/internal/record"
	"github.com/gravwell/taskd/internal/status"
)

const uuidA = "11111111-1111-1111-1111-111111111111"

func lastNonEmptyLine(payload []byte) string {
	lines := strings.Split(strings.TrimRight(string(payload), "\n"), "\n")
	return lines[len(lines)-1]
}

func TestFirstSync(t *testing.T) {
	e := New()
	var log []string

	payload := []byte(`[description:"write tests" status:"pending" uuid:"` + uuidA + `" entry:"100"]` + "\n")
	res, err := e.Sync(log, payload)
	require.NoError(t, err)
	require.Equal(t, status.OK, res.Code)
	require.Contains(t, string(res.Payload), uuidA)
	require.Len(t, res.Append, 2) // the record, plus the new sync key
	k1 := lastNonEmptyLine(res.Payload)
	require.NotEmpty(t, k1)
	require.Equal(t, k1, res.Append[len(res.Append)-1])
}

func TestNoOpSyncReturnsSameKey(t *testing.T) {
	e := New()
	firstRes, err := e.Sync(nil, []byte(`[description:"write tests" uuid:"`+uuidA+`" entry:"100"]`+"\n"))
	require.NoError(t, err)
	log := firstRes.Append
	k1 := log[len(log)-1]

	res, err := e.Sync(log, []byte(k1+"\n"))
	require.NoError(t, err)
	require.Equal(t, status.NoChange, res.Code)
	require.Equal(t, k1+"\n", string(res.Payload))
	require.Empty(t, res.Append)
}

func TestNonConflictUpdate(t *testing.T) {
	e := New()
	firstRes, err := e.Sync(nil, []byte(`[description:"write tests" status:"pending" uuid:"`+uuidA+`" entry:"100"]`+"\n"))
	require.NoError(t, err)
	log := append([]string{}, firstRes.Append...)
	k1 := log[len(log)-1]

	payload := []byte(`[description:"write tests" status:"completed" uuid:"` + uuidA + `" entry:"100" modified:"200"]` + "\n" + k1 + "\n")
	res, err := e.Sync(log, payload)
	require.NoError(t, err)
	require.Equal(t, status.OK, res.Code)
	require.Contains(t, string(res.Payload), `status:"completed"`)
	require.Len(t, res.Append, 2)
}

func TestConcurrentEditMerge(t *testing.T) {
	e := New()
	firstRes, err := e.Sync(nil, []byte(`[description:"write tests" status:"pending" uuid:"`+uuidA+`" entry:"100"]`+"\n"))
	require.NoError(t, err)
	log := append([]string{}, firstRes.Append...)
	k1 := log[len(log)-1]

	// C1 syncs first: marks the task completed.
	c1Payload := []byte(`[description:"write tests" status:"completed" uuid:"` + uuidA + `" entry:"100" modified:"150"]` + "\n" + k1 + "\n")
	c1Res, err := e.Sync(log, c1Payload)
	require.NoError(t, err)
	require.Equal(t, status.OK, c1Res.Code)
	log = append(log, c1Res.Append...)

	// C2, still on K1, adds a project tag concurrently.
	c2Payload := []byte(`[description:"write tests" uuid:"` + uuidA + `" entry:"100" project:"x" modified:"160"]` + "\n" + k1 + "\n")
	c2Res, err := e.Sync(log, c2Payload)
	require.NoError(t, err)
	require.Equal(t, status.OK, c2Res.Code)

	var merged record.Task
	for _, line := range strings.Split(strings.TrimRight(string(c2Res.Payload), "\n"), "\n") {
		if strings.Contains(line, "project:") {
			merged, err = record.Decode(line)
			require.NoError(t, err)
		}
	}
	require.Equal(t, "completed", merged.Get("status"))
	require.Equal(t, "x", merged.Get("project"))
	require.Equal(t, "160", merged.Get("modified"))
}

func TestUnknownCursorFails(t *testing.T) {
	e := New()
	_, err := e.Sync(nil, []byte("DEADBEEF-0000-0000-0000-000000000000\n"))
	require.Error(t, err)
	var se *status.Error
	require.ErrorAs(t, err, &se)
	require.Contains(t, se.Text, "sync key not found")
}

func TestValidationFailureRejectsWholeRequest(t *testing.T) {
	e := New()
	_, err := e.Sync(nil, []byte(`[uuid:"`+uuidA+`" status:"pending"]`+"\n"))
	require.Error(t, err)
	var se *status.Error
	require.ErrorAs(t, err, &se)
	require.Contains(t, se.Text, "description")
}

func TestDuplicateUUIDInSameTurnMergesOnce(t *testing.T) {
	e := New()
	payload := []byte(`[description:"a" uuid:"` + uuidA + `" entry:"100" modified:"101"]` + "\n" +
		`[description:"b" uuid:"` + uuidA + `" entry:"100" modified:"102"]` + "\n")
	res, err := e.Sync(nil, payload)
	require.NoError(t, err)
	require.Equal(t, status.OK, res.Code)

	count := 0
	for _, l := range res.Append {
		if strings.Contains(l, uuidA) {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestStatusDefaultsToPending(t *testing.T) {
	e := New()
	res, err := e.Sync(nil, []byte(`[description:"x" uuid:"`+uuidA+`" entry:"100"]`+"\n"))
	require.NoError(t, err)
	require.Contains(t, string(res.Payload), `status:"pending"`)
}

func TestRecurringStatusDerivation(t *testing.T) {
	e := New()
	payload := []byte(`[description:"x" uuid:"` + uuidA + `" entry:"100" due:"500" recur:"weekly"]` + "\n")
	res, err := e.Sync(nil, payload)
	require.NoError(t, err)
	require.Contains(t, string(res.Payload), `status:"recurring"`)
}

func TestRecurWithoutDueFails(t *testing.T) {
	e := New()
	payload := []byte(`[description:"x" uuid:"` + uuidA + `" entry:"100" recur:"weekly"]` + "\n")
	_, err := e.Sync(nil, payload)
	require.Error(t, err)
}

func TestEmptyPayloadNoCursorReturnsSubsetAndKey(t *testing.T) {
	e := New()
	first, err := e.Sync(nil, []byte(`[description:"x" uuid:"`+uuidA+`" entry:"100"]`+"\n"))
	require.NoError(t, err)

	res, err := e.Sync(first.Append, []byte(""))
	require.NoError(t, err)
	require.Equal(t, status.OK, res.Code)
	require.Contains(t, string(res.Payload), uuidA)
}
