/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gravwell/taskd/internal/status"
)

func mkUser(t *testing.T, root, org, user, cred string) {
	t.Helper()
	dir := filepath.Join(root, "orgs", org, "users", user)
	require.NoError(t, os.MkdirAll(dir, 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte("key="+cred+"\n"), 0640))
}

func TestAuthenticateSuccess(t *testing.T) {
	root := t.TempDir()
	mkUser(t, root, "acme", "bob", "s3cr3t")

	a, err := New(root, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Authenticate("acme", "bob", "s3cr3t"))
}

func TestAuthenticateWrongCredential(t *testing.T) {
	root := t.TempDir()
	mkUser(t, root, "acme", "bob", "s3cr3t")

	a, err := New(root, nil)
	require.NoError(t, err)
	defer a.Close()

	err = a.Authenticate("acme", "bob", "wrong")
	var se *status.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, status.AccessDenied, se.Code)
}

func TestAuthenticateUnknownPrincipalDoesNotDistinguish(t *testing.T) {
	root := t.TempDir()
	mkUser(t, root, "acme", "bob", "s3cr3t")

	a, err := New(root, nil)
	require.NoError(t, err)
	defer a.Close()

	err1 := a.Authenticate("doesnotexist", "bob", "x")
	err2 := a.Authenticate("acme", "doesnotexist", "x")

	var se1, se2 *status.Error
	require.ErrorAs(t, err1, &se1)
	require.ErrorAs(t, err2, &se2)
	require.Equal(t, status.AccessDenied, se1.Code)
	require.Equal(t, status.AccessDenied, se2.Code)
}

func TestAuthenticateOrgSuspended(t *testing.T) {
	root := t.TempDir()
	mkUser(t, root, "acme", "bob", "s3cr3t")
	require.NoError(t, os.WriteFile(filepath.Join(root, "orgs", "acme", "suspended"), nil, 0640))

	a, err := New(root, nil)
	require.NoError(t, err)
	defer a.Close()

	err = a.Authenticate("acme", "bob", "s3cr3t")
	var se *status.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, status.AccountSuspended, se.Code)
}

func TestAuthenticateUserSuspended(t *testing.T) {
	root := t.TempDir()
	mkUser(t, root, "acme", "bob", "s3cr3t")
	require.NoError(t, os.WriteFile(filepath.Join(root, "orgs", "acme", "users", "bob", "suspended"), nil, 0640))

	a, err := New(root, nil)
	require.NoError(t, err)
	defer a.Close()

	err = a.Authenticate("acme", "bob", "s3cr3t")
	var se *status.Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, status.AccountSuspended, se.Code)
}

func TestAuthenticateReflectsCredentialRotation(t *testing.T) {
	root := t.TempDir()
	mkUser(t, root, "acme", "bob", "old-secret")

	a, err := New(root, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Authenticate("acme", "bob", "old-secret"))

	mkUser(t, root, "acme", "bob", "new-secret")
	// give the fsnotify watcher time to observe the write and drop the cache
	require.Eventually(t, func() bool {
		return a.Authenticate("acme", "bob", "new-secret") == nil
	}, 2*time.Second, 10*time.Millisecond)
}
