/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package wire implements the two layered framings every request and
// response cross: a 4-byte big-endian length prefix over the transport,
// and a text envelope (header block, blank-line separator, payload)
// inside it.
package wire

import "errors"

var (
	// ErrFrameTooSmall is returned when the advertised length is smaller
	// than the 4-byte prefix itself.
	ErrFrameTooSmall = errors.New("wire: frame length shorter than prefix")
	// ErrFrameTooBig is returned when the advertised length exceeds the
	// configured request size limit. Callers map this to status 504.
	ErrFrameTooBig = errors.New("wire: frame exceeds configured limit")
	// ErrMalformedEnvelope is returned when no blank-line separator is
	// found, or a header line lacks a colon. Callers map this to 400.
	ErrMalformedEnvelope = errors.New("wire: malformed envelope")
	// ErrUnsupportedEncoding is returned when the body sniffs as
	// UTF-16/32 rather than UTF-8. Callers map this to 401.
	ErrUnsupportedEncoding = errors.New("wire: unsupported encoding")
	// ErrDuplicateHeader is returned when a header name repeats.
	ErrDuplicateHeader = errors.New("wire: duplicate header")
)
