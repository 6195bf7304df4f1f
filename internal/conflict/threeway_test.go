package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeThreeWay(t *testing.T) {
	tests := []struct {
		name      string
		ancestor  map[string]any
		client    map[string]any
		server    map[string]any
		merged    map[string]any
		conflicts []string
	}{
		{
			name:     "only client changed",
			ancestor: map[string]any{"title": "a", "body": "x"},
			client:   map[string]any{"title": "b", "body": "x"},
			server:   map[string]any{"title": "a", "body": "x"},
			merged:   map[string]any{"title": "b", "body": "x"},
		},
		{
			name:     "only server changed",
			ancestor: map[string]any{"title": "a"},
			client:   map[string]any{"title": "a"},
			server:   map[string]any{"title": "c"},
			merged:   map[string]any{"title": "c"},
		},
		{
			name:     "disjoint edits combine",
			ancestor: map[string]any{"title": "a", "body": "x"},
			client:   map[string]any{"title": "b", "body": "x"},
			server:   map[string]any{"title": "a", "body": "y"},
			merged:   map[string]any{"title": "b", "body": "y"},
		},
		{
			name:      "both changed differently",
			ancestor:  map[string]any{"title": "a", "body": "x"},
			client:    map[string]any{"title": "b", "body": "z"},
			server:    map[string]any{"title": "c", "body": "y"},
			merged:    map[string]any{"title": "c", "body": "y"},
			conflicts: []string{"body", "title"},
		},
		{
			name:     "both made the same change",
			ancestor: map[string]any{"title": "a"},
			client:   map[string]any{"title": "b"},
			server:   map[string]any{"title": "b"},
			merged:   map[string]any{"title": "b"},
		},
		{
			name:     "client removed a field the server kept",
			ancestor: map[string]any{"title": "a", "tag": "t"},
			client:   map[string]any{"title": "a"},
			server:   map[string]any{"title": "a", "tag": "t"},
			merged:   map[string]any{"title": "a"},
		},
		{
			name:     "nested values compare deeply",
			ancestor: map[string]any{"prefs": map[string]any{"dark": false}},
			client:   map[string]any{"prefs": map[string]any{"dark": true}},
			server:   map[string]any{"prefs": map[string]any{"dark": false}},
			merged:   map[string]any{"prefs": map[string]any{"dark": true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MergeThreeWay(tt.ancestor, tt.client, tt.server)
			assert.Equal(t, tt.merged, result.Merged)
			assert.Equal(t, tt.conflicts, result.Conflicts)
		})
	}
}
