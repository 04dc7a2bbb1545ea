package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomFormatter_Format(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "分类失败",
		Data:    logrus.Fields{"entity": "Acme", "attempt": 2},
	}

	out, err := (&CustomFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2025-06-01 09:30:00] [WARN] [] 分类失败 attempt=2 entity=Acme\n", string(out))
}

func TestL_FallsBackToDiscard(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	Log = nil
	assert.NotNil(t, L())
	L().Info("dropped")
}

func TestInitLogger_WritesFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "logs", "risk_radar.log")
	require.NoError(t, InitLogger("debug", path))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())

	Log.Info("screening started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "screening started")
	assert.Contains(t, string(data), "[INFO]")
}

func TestInitLogger_BadLevelDefaultsToInfo(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	require.NoError(t, InitLogger("loud", ""))
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
}
