package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityDefinition_Validate(t *testing.T) {
	valid := EntityDefinition{Name: "notes", Table: "notes", OwnerField: "user_id", Fields: []string{"title", "body"}}
	require.NoError(t, valid.Validate())

	cases := map[string]EntityDefinition{
		"missing name":    {Table: "notes", OwnerField: "user_id", Fields: []string{"title"}},
		"bad table":       {Name: "notes", Table: "notes; drop table x", OwnerField: "user_id", Fields: []string{"title"}},
		"bad owner":       {Name: "notes", Table: "notes", OwnerField: "User-Id", Fields: []string{"title"}},
		"no fields":       {Name: "notes", Table: "notes", OwnerField: "user_id"},
		"reserved field":  {Name: "notes", Table: "notes", OwnerField: "user_id", Fields: []string{"version"}},
		"duplicate field": {Name: "notes", Table: "notes", OwnerField: "user_id", Fields: []string{"title", "title"}},
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, def.Validate())
		})
	}
}

func TestEntityDefinition_Project(t *testing.T) {
	def := EntityDefinition{Name: "notes", Table: "notes", OwnerField: "user_id", Fields: []string{"title", "body"}}

	projected := def.Project(map[string]any{"title": "a", "version": 9, "secret": true})

	assert.Equal(t, map[string]any{"title": "a"}, projected)
	assert.NotNil(t, def.Project(nil))
}

func TestSyncableRecord_ToChange(t *testing.T) {
	updated := time.UnixMilli(1500)
	client := "phone"
	rec := &SyncableRecord{ID: "r1", Data: map[string]any{"a": 1}, Version: 3, UpdatedAt: updated, ClientID: &client}

	change := rec.ToChange()
	assert.Equal(t, OperationUpdate, change.Operation)
	assert.Equal(t, int64(1500), change.Timestamp)
	assert.Equal(t, "phone", change.ClientID)

	rec.DeletedAt = &updated
	assert.Equal(t, OperationDelete, rec.ToChange().Operation)
}
