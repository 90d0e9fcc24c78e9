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
	"strings"

	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/gravwell/taskd/internal/record"
	"github.com/gravwell/taskd/internal/status"
)

// calendarRecurrences are the non-duration spellings taskwarrior accepts
// for "recur" in addition to a parseable duration ("6mo", "2w", ...).
var calendarRecurrences = map[string]bool{
	"daily":      true,
	"day":        true,
	"weekday":    true,
	"weekly":     true,
	"biweekly":   true,
	"fortnight":  true,
	"monthly":    true,
	"quarterly":  true,
	"semiannual": true,
	"annual":     true,
	"yearly":     true,
}

// validRecur reports whether value is an accepted "recur" spelling: a
// duration go-str2duration can parse, a count of months ("6mo"), or one of
// the fixed calendar words.
func validRecur(value string) bool {
	if calendarRecurrences[strings.ToLower(value)] {
		return true
	}
	if months, ok := strings.CutSuffix(value, "mo"); ok {
		if _, err := strconv.Atoi(months); err == nil {
			return true
		}
	}
	_, err := str2duration.ParseDuration(value)
	return err == nil
}

// validPriority reports whether a priority value is one of the three
// taskwarrior accepts.
func validPriority(value string) bool {
	return value == "H" || value == "M" || value == "L"
}

// validateAndNormalize checks a client-submitted task and fills in the
// defaults the protocol requires before it can be merged or stored:
// description is mandatory, recur requires due and a parseable value,
// priority is restricted to H/M/L, and status defaults/derives as below.
func validateAndNormalize(t record.Task) (record.Task, error) {
	if strings.TrimSpace(t.Get("description")) == "" {
		return t, status.New(status.SyntaxError, "task is missing a description")
	}

	if t.Has("recur") {
		if !t.Has("due") {
			return t, status.New(status.SyntaxError, "a recurring task must have a due date")
		}
		if !validRecur(t.Get("recur")) {
			return t, status.New(status.SyntaxError, "recur value '"+t.Get("recur")+"' is not a valid duration")
		}
	}

	if t.Has("priority") && !validPriority(t.Get("priority")) {
		return t, status.New(status.SyntaxError, "priority must be one of H, M, L")
	}

	if !t.Has("status") {
		t.Set("status", "pending")
	}
	if t.Get("status") == "pending" {
		switch {
		case t.Has("due") && t.Has("recur") && !t.Has("parent"):
			t.Set("status", "recurring")
		case t.Has("wait"):
			t.Set("status", "waiting")
		}
	}

	return t, nil
}
