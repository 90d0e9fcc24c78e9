/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package txlog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadAllMissingFileIsEmpty(t *testing.T) {
	s := New(t.TempDir())
	lines, err := s.ReadAll("acme", "bob")
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestAppendThenReadAll(t *testing.T) {
	s := New(t.TempDir())
	unlock, err := s.Lock("acme", "bob")
	require.NoError(t, err)
	defer unlock()

	require.NoError(t, s.Append("acme", "bob", []string{`[uuid:"a"]`, "K1"}))

	lines, err := s.ReadAll("acme", "bob")
	require.NoError(t, err)
	require.Equal(t, []string{`[uuid:"a"]`, "K1"}, lines)
}

func TestAppendIsCumulative(t *testing.T) {
	s := New(t.TempDir())
	unlock, err := s.Lock("acme", "bob")
	require.NoError(t, err)

	require.NoError(t, s.Append("acme", "bob", []string{"K1"}))
	require.NoError(t, s.Append("acme", "bob", []string{"K2"}))
	unlock()

	lines, err := s.ReadAll("acme", "bob")
	require.NoError(t, err)
	require.Equal(t, []string{"K1", "K2"}, lines)
}

func TestDifferentUsersDoNotContend(t *testing.T) {
	s := New(t.TempDir())
	u1, err := s.Lock("acme", "bob")
	require.NoError(t, err)
	defer u1()

	u2, err := s.Lock("acme", "alice")
	require.NoError(t, err)
	defer u2()
}

func TestConcurrentAppendsSameUserAreSerialized(t *testing.T) {
	s := New(t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			unlock, err := s.Lock("acme", "bob")
			require.NoError(t, err)
			defer unlock()
			require.NoError(t, s.Append("acme", "bob", []string{"line"}))
		}(i)
	}
	wg.Wait()

	lines, err := s.ReadAll("acme", "bob")
	require.NoError(t, err)
	require.Len(t, lines, 20)
}
