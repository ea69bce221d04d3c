package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestSikkerloggWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sikkerlogg.json")
	logger, err := NewSikkerlogg(path, "production")
	require.NoError(t, err)

	logger.Info("kvittering kunne ikke leses", zap.ByteString("melding", []byte("<oppdrag/>")))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.True(t, strings.Contains(line, `"logger":"sikkerlogg"`), line)
	assert.True(t, strings.Contains(line, "<oppdrag/>"), line)
}
