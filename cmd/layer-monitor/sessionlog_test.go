package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onehand/internal/keymap"
)

func testRecord(at time.Time, keyID int, keyLayer keymap.Layer, total int) KeyRecord {
	return KeyRecord{
		At:         at,
		Layer:      keyLayer,
		KeyLayer:   keyLayer,
		KeyID:      keyID,
		KeyLabel:   keymap.Label(keyLayer, keymap.KeyPosition(keyID)),
		KeyPresses: total,
		FnPresses:  1,
	}
}

func TestSessionLogWritesCSVAndDatabase(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	log, csvPath, err := OpenSessionLog(dir, "hid", t0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "telemetry_20260301_093000.csv"), csvPath)

	require.NoError(t, log.Append(testRecord(t0, 34, keymap.Base, 1)))
	require.NoError(t, log.Append(testRecord(t0.Add(time.Second), 34, keymap.Base, 2)))
	require.NoError(t, log.Append(testRecord(t0.Add(2*time.Second), int(keymap.PosComma), keymap.PhoneticFn, 3)))
	require.NoError(t, log.Close())

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"2026-03-01T09:30:00Z", "0", "1", "1", "0", "0", "34", "A"}, rows[1])
	assert.Equal(t, keymap.Label(keymap.PhoneticFn, keymap.PosComma), rows[3][7])

	store, err := OpenStore(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	defer store.Close()

	n, err := store.SessionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	base, err := store.LayerCounts(keymap.Base)
	require.NoError(t, err)
	assert.Equal(t, 2, base[34])

	fn, err := store.LayerCounts(keymap.PhoneticFn)
	require.NoError(t, err)
	assert.Equal(t, 1, fn[keymap.PosComma])
}

func TestStoreRequiresSession(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.InsertKeyPress(testRecord(time.Now(), 1, keymap.Base, 1)))
}

func TestCSVLogAppendsWithoutSecondHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")

	l, err := openCSVLog(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(testRecord(time.Unix(0, 0).UTC(), 1, keymap.Base, 1)))
	require.NoError(t, l.Close())

	l, err = openCSVLog(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(testRecord(time.Unix(1, 0).UTC(), 1, keymap.Base, 2)))
	require.NoError(t, l.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
