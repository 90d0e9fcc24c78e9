/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package sync

import (
	"strconv"

	"github.com/gravwell/taskd/internal/record"
)

// lastModification returns the timestamp used to order an edit in the
// zipper walk: the "modified" attribute if present, else the first present
// of "end", "start", "entry", in that order -- the fallback chain clients older than
// taskwarrior 2.2.0 rely on, since they never wrote "modified" at all.
func lastModification(t record.Task) int64 {
	if t.Has(record.AttrModified) {
		return t.GetDate(record.AttrModified)
	}
	if t.Has("end") {
		return t.GetDate("end")
	}
	if t.Has("start") {
		return t.GetDate("start")
	}
	return t.GetDate("entry")
}

// threeWayPatch applies the delta between from and to onto base, all
// three sharing a uuid: attributes only in from are removed from base,
// attributes only in to are set on base, and attributes in both whose
// values differ are set to to's value. uuid is never touched.
func threeWayPatch(base record.Task, from, to record.Task) record.Task {
	fromAttrs := from.Attributes()
	toAttrs := to.Attributes()

	toSet := make(map[string]bool, len(toAttrs))
	for _, a := range toAttrs {
		toSet[a] = true
	}
	fromSet := make(map[string]bool, len(fromAttrs))
	for _, a := range fromAttrs {
		fromSet[a] = true
	}

	for _, a := range fromAttrs {
		if a == record.AttrUUID {
			continue
		}
		if !toSet[a] {
			base.Remove(a)
		}
	}
	for _, a := range toAttrs {
		if a == record.AttrUUID {
			continue
		}
		if !fromSet[a] || from.Get(a) != to.Get(a) {
			base.Set(a, to.Get(a))
		}
	}
	return base
}

// zipperWalk merges two ordered edit sequences onto ancestor: at each
// step the pending edit with the smaller modification time is applied,
// ties going to the server side (serverMods) per the fixed tie-break;
// whichever side runs out first lets the other drain. Each application is
// a three-way patch against the previous state on the SAME side (a
// virtual ancestor that starts at the common ancestor and advances only
// as that side's edits are consumed).
func zipperWalk(ancestor record.Task, clientMods, serverMods []record.Task) record.Task {
	combined := ancestor.Clone()

	prevClient := ancestor
	prevServer := ancestor
	ci, si := 0, 0

	for ci < len(clientMods) && si < len(serverMods) {
		modClient := lastModification(clientMods[ci])
		modServer := lastModification(serverMods[si])
		if modClient < modServer {
			combined = threeWayPatch(combined, prevClient, clientMods[ci])
			combined.Set(record.AttrModified, strconv.FormatInt(modClient, 10))
			prevClient = clientMods[ci]
			ci++
		} else {
			combined = threeWayPatch(combined, prevServer, serverMods[si])
			combined.Set(record.AttrModified, strconv.FormatInt(modServer, 10))
			prevServer = serverMods[si]
			si++
		}
	}
	for ci < len(clientMods) {
		combined = threeWayPatch(combined, prevClient, clientMods[ci])
		combined.Set(record.AttrModified, strconv.FormatInt(lastModification(clientMods[ci]), 10))
		prevClient = clientMods[ci]
		ci++
	}
	for si < len(serverMods) {
		combined = threeWayPatch(combined, prevServer, serverMods[si])
		combined.Set(record.AttrModified, strconv.FormatInt(lastModification(serverMods[si]), 10))
		prevServer = serverMods[si]
		si++
	}

	return combined
}
