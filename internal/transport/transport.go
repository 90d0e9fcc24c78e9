/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package transport abstracts "decode one length-framed envelope off a
// connection, encode one back" behind a single interface, so the
// dispatcher and the listen loop in cmd/taskd never care whether the
// underlying net.Conn is plaintext or TLS. Certificate loading and
// lifecycle stay the caller's problem: TLSTransport holds no TLS
// configuration and works on connections the caller's tls.Listener has
// already wrapped, mirroring how the teacher's own
// acceptor loop (ingesters/SimpleRelay/simple.go) builds the
// tls.Config once at listener-setup time, entirely separate from the
// per-connection read/write path.
package transport

import (
	"io"
	"net"

	"github.com/gravwell/taskd/internal/wire"
)

// Transport reads and writes one wire envelope against a connection.
type Transport interface {
	ReadEnvelope(conn net.Conn) (wire.Envelope, error)
	WriteEnvelope(conn net.Conn, env wire.Envelope) error
}

// PlainTransport is the length-framed envelope protocol over a raw
// net.Conn, with no further wrapping.
type PlainTransport struct {
	// Limit bounds the total frame size (length prefix included) that
	// ReadEnvelope will accept; 0 means unbounded. A frame whose advertised
	// length is Limit or more is rejected before its body is even read.
	Limit uint32
}

// NewPlain returns a PlainTransport that rejects frames whose total size
// (length prefix included) is limit or more (0 for unbounded).
func NewPlain(limit uint32) *PlainTransport {
	return &PlainTransport{Limit: limit}
}

// ReadEnvelope reads one length-prefixed frame from conn and decodes its
// envelope.
func (t *PlainTransport) ReadEnvelope(conn net.Conn) (wire.Envelope, error) {
	return readEnvelope(conn, t.Limit)
}

// WriteEnvelope encodes env and writes it as one length-prefixed frame.
func (t *PlainTransport) WriteEnvelope(conn net.Conn, env wire.Envelope) error {
	return writeEnvelope(conn, env)
}

// TLSTransport is the same framing over a connection already wrapped in
// TLS (typically the *tls.Conn a tls.Listener hands the acceptor loop).
// It does not itself dial, listen, or load certificates.
type TLSTransport struct {
	Limit uint32
}

// NewTLS returns a TLSTransport that rejects frames whose total size
// (length prefix included) is limit or more (0 for unbounded). The caller is responsible for having
// already negotiated TLS on conn before calling ReadEnvelope/WriteEnvelope.
func NewTLS(limit uint32) *TLSTransport {
	return &TLSTransport{Limit: limit}
}

func (t *TLSTransport) ReadEnvelope(conn net.Conn) (wire.Envelope, error) {
	return readEnvelope(conn, t.Limit)
}

func (t *TLSTransport) WriteEnvelope(conn net.Conn, env wire.Envelope) error {
	return writeEnvelope(conn, env)
}

func readEnvelope(r io.Reader, limit uint32) (wire.Envelope, error) {
	body, err := wire.ReadFrame(r, limit)
	if err != nil {
		return wire.Envelope{}, err
	}
	return wire.Decode(body)
}

func writeEnvelope(w io.Writer, env wire.Envelope) error {
	return wire.WriteFrame(w, wire.Encode(env))
}
