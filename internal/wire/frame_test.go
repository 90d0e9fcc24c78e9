/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("hello world")
	require.NoError(t, WriteFrame(&buf, body))

	got, err := ReadFrame(&buf, 0)
	require.NoError(t, err)
	require.Equal(t, body, got)
}

func TestFrameLimitRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	body := make([]byte, 100)
	require.NoError(t, WriteFrame(&buf, body))

	_, err := ReadFrame(&buf, uint32(len(body)+4-1))
	require.ErrorIs(t, err, ErrFrameTooBig)
}

func TestFrameLimitRejectsExactBoundary(t *testing.T) {
	var buf bytes.Buffer
	body := make([]byte, 100)
	require.NoError(t, WriteFrame(&buf, body))

	_, err := ReadFrame(&buf, uint32(len(body)+4))
	require.ErrorIs(t, err, ErrFrameTooBig)
}

func TestFrameLimitAcceptsOneByteUnderBoundary(t *testing.T) {
	var buf bytes.Buffer
	body := make([]byte, 99)
	require.NoError(t, WriteFrame(&buf, body))

	got, err := ReadFrame(&buf, uint32(len(body)+4+1))
	require.NoError(t, err)
	require.Len(t, got, len(body))
}

func TestFrameTooSmallHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 2})
	_, err := ReadFrame(&buf, 0)
	require.ErrorIs(t, err, ErrFrameTooSmall)
}
