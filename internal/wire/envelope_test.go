/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	e := NewEnvelope()
	e.Set("type", "sync")
	e.Set("protocol", "v1")
	e.Set("org", "acme")
	e.Payload = []byte("[uuid:\"abc\"]\n")

	body := Encode(e)
	got, err := Decode(body)
	require.NoError(t, err)
	require.Equal(t, "sync", got.Get("type"))
	require.Equal(t, "v1", got.Get("protocol"))
	require.Equal(t, "acme", got.Get("org"))
	require.Equal(t, []byte("[uuid:\"abc\"]"), got.Payload)
}

func TestEnvelopeDecodeTrimsHeaderWhitespace(t *testing.T) {
	got, err := Decode([]byte("type:   sync  \n\npayload"))
	require.NoError(t, err)
	require.Equal(t, "sync", got.Get("type"))
}

func TestEnvelopeDecodeEmptyHeadersOk(t *testing.T) {
	got, err := Decode([]byte("\n\npayload"))
	require.NoError(t, err)
	require.Empty(t, got.Headers())
	require.Equal(t, []byte("payload"), got.Payload)
}

func TestEnvelopeDecodeRejectsMissingSeparator(t *testing.T) {
	_, err := Decode([]byte("type: sync\nno separator here"))
	require.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestEnvelopeDecodeRejectsHeaderWithoutColon(t *testing.T) {
	_, err := Decode([]byte("type sync\n\npayload"))
	require.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestEnvelopeDecodeRejectsDuplicateHeader(t *testing.T) {
	_, err := Decode([]byte("type: sync\ntype: statistics\n\npayload"))
	require.ErrorIs(t, err, ErrDuplicateHeader)
}

func TestEnvelopeDecodeRejectsUTF16Sniff(t *testing.T) {
	body := []byte{0xFF, 0xFE, 0x00, 0x00, 'a', 'b'}
	_, err := Decode(body)
	require.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestEnvelopeDecodeRejectsInvalidUTF8(t *testing.T) {
	body := append([]byte("type: sync\n\n"), 0xFF, 0xFE, 0xFD)
	_, err := Decode(body)
	require.ErrorIs(t, err, ErrUnsupportedEncoding)
}
