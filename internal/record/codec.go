/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package record

import (
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Encode renders a task as a single "[name:"value" ...]" line, skipping
// attributes whose value is empty. Attribute order follows t.Attributes().
func Encode(t Task) (string, error) {
	var b strings.Builder
	b.WriteByte('[')
	first := true
	for _, name := range t.Attributes() {
		val := t.Get(name)
		if val == "" {
			continue
		}
		quoted, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(name)
		b.WriteByte(':')
		b.Write(quoted)
	}
	b.WriteByte(']')
	return b.String(), nil
}

// Decode parses a single record line into a Task. line must not include a
// trailing newline.
func Decode(line string) (Task, error) {
	t := New()

	if len(line) < 2 || line[0] != '[' {
		return t, ErrNotBracketed
	}
	i := 1
	n := len(line)
	closed := false

	for i < n {
		// skip leading whitespace
		for i < n && line[i] == ' ' {
			i++
		}
		if i < n && line[i] == ']' {
			closed = true
			i++
			break
		}
		if i >= n {
			break
		}

		nameStart := i
		for i < n && line[i] != ':' {
			i++
		}
		if i >= n || i == nameStart {
			return t, ErrMalformedName
		}
		name := line[nameStart:i]
		i++ // skip ':'

		if i >= n || line[i] != '"' {
			return t, ErrMalformedQuote
		}
		quoteStart := i
		i++
		for i < n {
			if line[i] == '\\' && i+1 < n {
				i += 2
				continue
			}
			if line[i] == '"' {
				i++
				break
			}
			i++
		}
		if i > n || line[quoteStart] != '"' || line[i-1] != '"' || i-1 == quoteStart {
			return t, ErrMalformedQuote
		}
		quoted := line[quoteStart:i]

		var value string
		if err := json.Unmarshal([]byte(quoted), &value); err != nil {
			return t, ErrMalformedQuote
		}

		if t.Has(name) {
			return t, ErrDuplicateAttr
		}
		t.Set(name, normalizeLegacyValue(name, value))
	}

	if !closed {
		return t, ErrNotBracketed
	}
	if i != n {
		return t, ErrTrailingJunk
	}
	if t.Len() == 0 {
		return t, ErrEmptyRecord
	}
	return t, nil
}

// normalizeLegacyValue applies the one documented wire compatibility fixup:
// a "recur" period written by an older client as a bare count of months
// ("6m") is rewritten to the current "6mo" spelling. Every other attribute
// passes through unchanged.
func normalizeLegacyValue(name, value string) string {
	if name != "recur" || len(value) < 2 {
		return value
	}
	if value[len(value)-1] != 'm' {
		return value
	}
	digits := value[:len(value)-1]
	if _, err := strconv.Atoi(digits); err != nil {
		return value
	}
	return digits + "mo"
}
