package serenity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFileFeedsFromEnv(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath,
		[]byte("SERENITY_API_KEY=sk-from-file\n"), 0o600))

	t.Setenv("SERENITY_API_KEY", "")
	require.NoError(t, os.Unsetenv("SERENITY_API_KEY"))
	require.NoError(t, LoadEnvFile(envPath))

	client, err := NewClient(FromEnv())
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", client.apiKey)
}

func TestLoadEnvFileMissingIsNoop(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))
}
