package storage

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpen(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) }

	key, err := s.Save("Receipt.TXT", strings.NewReader("TOTAL 45.00"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "2026/03/"), key)
	assert.True(t, strings.HasSuffix(key, ".txt"), key)

	f, err := s.Open(key)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "TOTAL 45.00", string(data))
}

func TestSaveUsesUniqueNames(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	a, err := s.Save("r.txt", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := s.Save("r.txt", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../secret", "/etc/passwd"} {
		_, err := s.Open(key)
		assert.Error(t, err, key)
	}
}
