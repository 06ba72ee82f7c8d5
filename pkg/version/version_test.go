package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
}

func TestString(t *testing.T) {
	info := Info{Version: "1.2.3", GitCommit: "abc123"}
	assert.Equal(t, "skilleval 1.2.3 (abc123)", info.String())
}

func TestJSON(t *testing.T) {
	info := Info{Version: "1.2.3", GitCommit: "abc123"}
	out, err := info.JSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "1.2.3"`)
	assert.Contains(t, out, `"gitCommit": "abc123"`)
}
