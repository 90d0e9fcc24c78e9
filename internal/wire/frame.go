/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package wire

import (
	"encoding/binary"
	"io"
)

// lengthPrefixSize is the width of the frame's own length field, included
// in the length it encodes (mirrors the teacher's entry header framing in
// entryWriter.go).
const lengthPrefixSize = 4

// ReadFrame reads one length-prefixed frame from r and returns its body
// (the bytes following the 4-byte prefix). limit bounds the total frame
// size including the prefix; a frame whose advertised length is equal to
// or exceeds limit is rejected with ErrFrameTooBig before the body is
// read off the wire, so an oversized request cannot be used to exhaust
// memory.
func ReadFrame(r io.Reader, limit uint32) ([]byte, error) {
	var hdr [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n < lengthPrefixSize {
		return nil, ErrFrameTooSmall
	}
	if limit > 0 && n >= limit {
		return nil, ErrFrameTooBig
	}
	body := make([]byte, n-lengthPrefixSize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// WriteFrame writes body as one length-prefixed frame to w.
func WriteFrame(w io.Writer, body []byte) error {
	n := uint32(len(body) + lengthPrefixSize)
	var hdr [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(hdr[:], n)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}
