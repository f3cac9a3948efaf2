package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNewRecord_AssignsID generates an id only when none was given.
func TestNewRecord_AssignsID(t *testing.T) {
	r := NewRecord(map[string]any{"make": "Volvo"})
	require.NotEmpty(t, r.ID())
	require.Len(t, r.ID(), 36)

	r = NewRecord(map[string]any{"id": "v-1", "make": "Volvo"})
	require.Equal(t, "v-1", r.ID())
}

// TestRecord_ID renders non-string ids and reports missing ones as empty.
func TestRecord_ID(t *testing.T) {
	require.Equal(t, "", Record{}.ID())
	require.Equal(t, "42", Record{"id": 42}.ID())
}

// TestRecord_Merge is shallow: nested values are replaced, not merged.
func TestRecord_Merge(t *testing.T) {
	orig := Record{
		"id":     "a",
		"status": "open",
		"specs":  map[string]any{"doors": 4, "seats": 5},
	}

	merged := orig.Merge(Record{"status": "sold", "specs": map[string]any{"doors": 2}})

	require.Equal(t, "sold", merged["status"])
	require.Equal(t, map[string]any{"doors": 2}, merged["specs"])
	require.Equal(t, "a", merged["id"])
	require.Equal(t, "open", orig["status"], "source record must stay untouched")
}

// TestRecord_Clone does not alias the source map.
func TestRecord_Clone(t *testing.T) {
	orig := Record{"id": "a"}
	c := orig.Clone()
	c["id"] = "b"
	require.Equal(t, "a", orig.ID())
	require.Nil(t, Record(nil).Clone())
}
