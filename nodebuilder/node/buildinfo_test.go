package node

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptyValue(t *testing.T) {
	require.Equal(t, "unknown", emptyValue)
}

func TestGetSemanticVersion(t *testing.T) {
	tests := []struct {
		name            string
		buildInfo       BuildInfo
		expectedVersion string
	}{
		{
			name:            "Empty Semantic Version",
			buildInfo:       BuildInfo{SemanticVersion: ""},
			expectedVersion: emptyValue,
		},
		{
			name:            "Non-empty Semantic Version",
			buildInfo:       BuildInfo{SemanticVersion: "1.2.3"},
			expectedVersion: "v1.2.3",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expectedVersion, tc.buildInfo.GetSemanticVersion())
		})
	}
}

func TestBuildInfo_CommitShortSha(t *testing.T) {
	tests := []struct {
		name       string
		lastCommit string
		want       string
	}{
		{name: "Empty lastCommit", lastCommit: "", want: "unknown"},
		{name: "Short lastCommit", lastCommit: "abc123", want: "abc123"},
		{name: "Valid lastCommit", lastCommit: "abcdefg", want: "abcdefg"},
		{name: "Long lastCommit", lastCommit: "abcdefghijk", want: "abcdefg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &BuildInfo{LastCommit: tt.lastCommit}
			require.Equal(t, tt.want, b.CommitShortSha())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.ShutdownTimeout = 0
	require.Error(t, cfg.Validate())
}
