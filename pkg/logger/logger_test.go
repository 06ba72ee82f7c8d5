package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextFallback(t *testing.T) {
	entry := FromContext(context.Background())
	require.NotNil(t, entry)
	assert.Equal(t, L.Logger, entry.Logger)
}

func TestWithLoggerRoundTrip(t *testing.T) {
	base := logrus.NewEntry(logrus.New()).WithField("suite", "correctness")
	ctx := WithLogger(context.Background(), base)

	entry := FromContext(ctx)
	require.NotNil(t, entry)
	assert.Equal(t, "correctness", entry.Data["suite"])
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	require.NoError(t, SetLevel("info"))
	assert.Error(t, SetLevel("not-a-level"))
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	defer SetFormat("text")

	L.Info("hello")
	assert.Contains(t, buf.String(), `"message":"hello"`)
}
