package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenDurableAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard.db")

	d, err := OpenDurable(path)
	require.NoError(t, err)
	defer d.Close()

	var name string
	err = d.Conn().QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='sessions'`,
	).Scan(&name)
	require.NoError(t, err)
	require.Equal(t, "sessions", name)
}

func TestOpenDurableIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard.db")

	d1, err := OpenDurable(path)
	require.NoError(t, err)
	require.NoError(t, d1.Close())

	d2, err := OpenDurable(path)
	require.NoError(t, err)
	defer d2.Close()
}
