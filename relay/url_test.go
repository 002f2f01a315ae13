package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"relay.example.com", "wss://relay.example.com/"},
		{"wss://relay.example.com", "wss://relay.example.com/"},
		{"wss://relay.example.com/", "wss://relay.example.com/"},
		{"ws://localhost:7777", "ws://localhost:7777/"},
		{"relay.example.com/inbox", "wss://relay.example.com/inbox/"},
		{"  nos.lol ", "wss://nos.lol/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.out, NormalizeURL(tt.in))
			// normalization is idempotent
			require.Equal(t, tt.out, NormalizeURL(tt.out))
		})
	}
}

func TestNormalizeURLs(t *testing.T) {
	got := NormalizeURLs([]string{"b.example.com", "", "wss://a.example.com/", "b.example.com/", "a.example.com"})
	require.Equal(t, []string{"wss://b.example.com/", "wss://a.example.com/"}, got)
	require.Empty(t, NormalizeURLs(nil))
}
