package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLWW_ClientNewer(t *testing.T) {
	client := map[string]any{"title": "client", "version": 99, "color": "red"}
	server := map[string]any{"title": "server", "version": 4, "pinned": true}

	merged := MergeLWW(client, server, 200, 100)

	assert.Equal(t, map[string]any{
		"title":   "client",
		"version": 4,
		"color":   "red",
		"pinned":  true,
	}, merged)
}

func TestMergeLWW_ServerNewer(t *testing.T) {
	client := map[string]any{"title": "client", "color": "red"}
	server := map[string]any{"title": "server"}

	merged := MergeLWW(client, server, 100, 200)

	// Fields only the client knows about are still carried over.
	assert.Equal(t, map[string]any{"title": "server", "color": "red"}, merged)
}

func TestMergeLWW_TiePrefersServer(t *testing.T) {
	merged := MergeLWW(map[string]any{"title": "client"}, map[string]any{"title": "server"}, 150, 150)
	assert.Equal(t, "server", merged["title"])
}

func TestMergeLWW_Deterministic(t *testing.T) {
	client := map[string]any{"a": 1, "b": 2}
	server := map[string]any{"b": 3, "c": 4}

	first := MergeLWW(client, server, 10, 5)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, MergeLWW(client, server, 10, 5))
	}
}
