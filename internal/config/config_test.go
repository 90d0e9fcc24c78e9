/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0640))
	return path
}

func TestLoadFlatValues(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "taskd.conf", "root=/var/lib/taskd\nrequest.limit=1048576\n# a comment\n\n")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/taskd", c.Get("root"))
	require.Equal(t, "1048576", c.Get("request.limit"))
}

func TestLoadTrailingComment(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "taskd.conf", "ip.log=info # trailing note\n")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "info", c.Get("ip.log"))
}

func TestLoadInclude(t *testing.T) {
	dir := t.TempDir()
	included := writeFile(t, dir, "extra.conf", "merge.tiebreak=server\n")
	root := writeFile(t, dir, "taskd.conf", "root=/data\ninclude "+included+"\n")

	c, err := Load(root)
	require.NoError(t, err)
	require.Equal(t, "/data", c.Get("root"))
	require.Equal(t, "server", c.Get("merge.tiebreak"))
}

func TestLoadIncludeRejectsRelativePath(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "taskd.conf", "include extra.conf\n")

	_, err := Load(root)
	require.ErrorIs(t, err, ErrIncludeNotAbsolute)
}

func TestLoadIncludeCycleHitsDepthLimit(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.conf")
	b := filepath.Join(dir, "b.conf")
	require.NoError(t, os.WriteFile(a, []byte("include "+b+"\n"), 0640))
	require.NoError(t, os.WriteFile(b, []byte("include "+a+"\n"), 0640))

	_, err := Load(a)
	require.ErrorIs(t, err, ErrIncludeTooDeep)
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "taskd.conf", "this is not valid\n")

	_, err := Load(path)
	require.ErrorIs(t, err, ErrMalformedLine)
}

func TestTypedAccessors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "taskd.conf", "request.limit=65536\nstrict=true\ntimeout=5s\n")

	c, err := Load(path)
	require.NoError(t, err)

	n, err := c.GetInt("request.limit", 0)
	require.NoError(t, err)
	require.Equal(t, 65536, n)

	b, err := c.GetBool("strict", false)
	require.NoError(t, err)
	require.True(t, b)

	d, err := c.GetDuration("timeout", 0)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, d)
}

func TestTypedAccessorsFallBackToDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "taskd.conf", "root=/data\n")

	c, err := Load(path)
	require.NoError(t, err)

	n, err := c.GetInt("missing", 42)
	require.NoError(t, err)
	require.Equal(t, 42, n)
}
