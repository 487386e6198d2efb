package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "journal.log")
	l, err := New("debug", path)
	require.NoError(t, err)

	l.Info("trade_opened")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"trade_opened"`)
	assert.Contains(t, string(data), `"ts":`)
}

func TestNewRejectsBadLevel(t *testing.T) {
	t.Parallel()

	_, err := New("loud", "")
	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, OrNop(nil))
}
