package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nijaru/yt-search/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	closer, err := Setup(config.LogConfig{Level: "debug", Dir: dir, JSON: true})
	require.NoError(t, err)

	logrus.WithField("video_id", "abc123").Debug("test entry")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"video_id":"abc123"`)
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestSetup_StderrOnly(t *testing.T) {
	closer, err := Setup(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, err := Setup(config.LogConfig{Level: "chatty"})
	assert.Error(t, err)
}
