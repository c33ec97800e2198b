package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string  `json:"name" validate:"notblank"`
	Color  *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Date   string  `json:"date" validate:"omitempty,date"`
	Status string  `json:"status" validate:"omitempty,oneof=open closed"`
}

func TestStruct(t *testing.T) {
	good := "#a1B2c3"
	require.NoError(t, Struct(sample{Name: "ok", Color: &good, Date: "2026-02-28", Status: "open"}))

	bad := "red"
	err := Struct(sample{Name: "  ", Color: &bad, Date: "2026-02-30", Status: "maybe"})
	require.ErrorIs(t, err, ErrInvalid)
	for _, want := range []string{"name is required", "color must be", "date must be", "status must be one of [open closed]"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("due", "2026-01-01", "date"))
	err := Var("due", "tomorrow", "date")
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "due must be a YYYY-MM-DD date")
}

func TestTags(t *testing.T) {
	got, err := Tags([]string{" work ", "home", "work"})
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "home"}, got)

	_, err = Tag("")
	assert.ErrorIs(t, err, ErrInvalidTag)
	_, err = Tag("bad\ttag")
	assert.ErrorIs(t, err, ErrInvalidTag)
	_, err = Tag(strings.Repeat("x", MaxTagLen+1))
	assert.ErrorIs(t, err, ErrInvalidTag)
}

func TestLink(t *testing.T) {
	assert.NoError(t, Link("a", "b"))
	assert.ErrorIs(t, Link("a", "a"), ErrInvalidLink)
	assert.ErrorIs(t, Link("", "b"), ErrInvalidLink)
}
