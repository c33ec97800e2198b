package extension

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptFlags(t *testing.T) {
	c := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	c.Flags().String(FlagTitle, "", "")
	c.Flags().String(FlagIcon, "", "")
	c.Flags().Int(FlagTarget, 0, "")
	c.Flags().Bool(FlagPinned, false, "")
	PlacementFlags(c)
	require.NoError(t, c.ParseFlags([]string{"--title", "", "--target", "3", "--after", "p1"}))

	title := OptStringFlag(c, FlagTitle)
	require.NotNil(t, title, "explicit empty value is still given")
	assert.Empty(t, *title)
	assert.Nil(t, OptStringFlag(c, FlagIcon))
	assert.Equal(t, 3, *OptIntFlag(c, FlagTarget))
	assert.Nil(t, OptBoolFlag(c, FlagPinned))
	assert.Equal(t, "p1", Placement(c).After)
	assert.Empty(t, Placement(c).Before)
}

func TestBody(t *testing.T) {
	got, err := Body("inline", nil)
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	got, err = Body("-", strings.NewReader("from stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, s := range []string{"", "0", "-3", "abc"} {
		_, err := ParseID(s)
		assert.Error(t, err, s)
	}
}
