// Package test provides shared testing utilities for pradb.
//
// It contains a scripted fake daemon speaking the smart-socket framing over
// loopback TCP, plus small file helpers used across package tests.
package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Context returns a test context cancelled when the test completes.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// TempFile creates a file named name with the given content in a temporary
// directory removed when the test completes.
func TempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err, "failed to write temp file")
	return path
}

// MissingPath returns a path inside a temporary directory that does not exist.
func MissingPath(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
	return path
}
