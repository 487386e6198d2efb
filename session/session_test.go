package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opener func(t *testing.T, dir string) Register

func openSnapshot(t *testing.T, dir string) Register {
	t.Helper()
	s, err := OpenSnapshot(filepath.Join(dir, "sessions.yaml"))
	require.NoError(t, err)
	return s
}

func openPebble(t *testing.T, dir string) Register {
	t.Helper()
	p, err := OpenPebble(filepath.Join(dir, "sessions.pebble"))
	require.NoError(t, err)
	return p
}

var backends = map[string]opener{
	"snapshot": openSnapshot,
	"pebble":   openPebble,
}

func ptr[T any](v T) *T { return &v }

func sample(id string) OpenTrade {
	return OpenTrade{
		TradeID:    "01HV5ZK3N8QW2Y7T6R4P9X1" + id,
		SessionID:  id,
		EntryPrice: 98.45,
		OpenedAt:   time.Date(2024, 6, 1, 9, 30, 15, 123456789, time.UTC),
	}
}

func TestRegisterCRUD(t *testing.T) {
	t.Parallel()

	for name, open := range backends {
		name, open := name, open
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := open(t, t.TempDir())
			defer r.Close()

			_, ok, err := r.Get("100")
			require.NoError(t, err)
			assert.False(t, ok)

			tr := sample("100")
			require.NoError(t, r.Put(tr))

			got, ok, err := r.Get("100")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tr, got)

			tr.TakeProfit = ptr(101.5)
			tr.Quality = ptr(85)
			require.NoError(t, r.Put(tr))

			got, _, err = r.Get("100")
			require.NoError(t, err)
			require.NotNil(t, got.TakeProfit)
			assert.Equal(t, 101.5, *got.TakeProfit)
			assert.Equal(t, 85, got.QualityOrZero())
			assert.Nil(t, got.StopLoss)

			require.NoError(t, r.Put(sample("200")))
			all, err := r.All()
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "100", all[0].SessionID)
			assert.Equal(t, "200", all[1].SessionID)

			require.NoError(t, r.Delete("100"))
			_, ok, err = r.Get("100")
			require.NoError(t, err)
			assert.False(t, ok)

			// deleting an absent session is a no-op
			require.NoError(t, r.Delete("100"))
		})
	}
}

func TestRegisterReplayAfterRestart(t *testing.T) {
	t.Parallel()

	for name, open := range backends {
		name, open := name, open
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			want := sample("7")
			want.TakeProfit = ptr(110.25)
			want.StopLoss = ptr(95.125)
			want.Quality = ptr(0)

			r := open(t, dir)
			require.NoError(t, r.Put(want))
			require.NoError(t, r.Put(sample("8")))
			require.NoError(t, r.Delete("8"))
			require.NoError(t, r.Close())

			r2 := open(t, dir)
			defer r2.Close()

			got, ok, err := r2.Get("7")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, got)

			_, ok, err = r2.Get("8")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRegisterRequiresSessionID(t *testing.T) {
	t.Parallel()

	for name, open := range backends {
		name, open := name, open
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := open(t, t.TempDir())
			defer r.Close()
			assert.Error(t, r.Put(OpenTrade{EntryPrice: 1}))
		})
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()

	r := openSnapshot(t, t.TempDir())
	tr := sample("1")
	tr.Quality = ptr(50)
	require.NoError(t, r.Put(tr))

	got, _, err := r.Get("1")
	require.NoError(t, err)
	*got.Quality = 99

	again, _, err := r.Get("1")
	require.NoError(t, err)
	assert.Equal(t, 50, *again.Quality)
}

func TestSnapshotCorruptFileIsAnError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sessions: [this is: not a map"), 0644))

	_, err := OpenSnapshot(path)
	assert.Error(t, err)
}

func TestSnapshotWriteFailureKeepsState(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// The snapshot path is a directory, so every rename onto it fails.
	path := filepath.Join(dir, "sessions.yaml")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0755))

	s := &Snapshot{path: path, trades: map[string]OpenTrade{}}
	assert.Error(t, s.Put(sample("1")))

	_, ok, err := s.Get("1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotFileIsYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := openSnapshot(t, dir)
	require.NoError(t, r.Put(sample("55")))

	data, err := os.ReadFile(filepath.Join(dir, "sessions.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "sessions:")
	assert.Contains(t, string(data), "entry_price: 98.45")
	assert.NotContains(t, string(data), "take_profit")
}
