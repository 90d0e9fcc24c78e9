/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package sync implements the three-way merge engine: branch point
// location, per-uuid conflict resolution via a zipper walk over
// timestamped edits, and response payload assembly.
package sync

import "strings"

// parsePayload splits a request payload into the client's pending record
// lines and its cursor (the sync-key line identifying the last server key
// the client ingested). A payload carries zero or more record lines
// (starting with '[') followed by at most one sync-key line; anything
// that doesn't start with '[' is treated as the cursor, last one wins.
func parsePayload(payload []byte) (records []string, cursor string) {
	for _, tok := range strings.Split(string(payload), "\n") {
		if tok == "" {
			continue
		}
		if tok[0] == '[' {
			records = append(records, tok)
		} else {
			cursor = tok
		}
	}
	return
}

// isRecordLine reports whether a raw log line is a record line as
// opposed to a sync-key line.
func isRecordLine(line string) bool {
	return len(line) > 0 && line[0] == '['
}
