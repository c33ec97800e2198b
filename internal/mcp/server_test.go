package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/config"
	"github.com/jpl-au/pim/internal/store"
	"github.com/jpl-au/pim/internal/vault"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (extension.Context, *store.SQLiteStore) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "test.db"), store.NewOptions())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return extension.NewContext(s, vault.New(s, vault.DefaultParams()), &config.Config{}, dir), s
}

func TestParsePageURI(t *testing.T) {
	tests := []struct {
		uri     string
		id      string
		version int
		wantErr bool
	}{
		{"pim://pages/abc", "abc", 0, false},
		{"pim://pages/abc/v/3", "abc", 3, false},
		{"pim://pages/abc/v/0", "", 0, true},
		{"pim://pages/abc/v/x", "", 0, true},
		{"pim://pages/", "", 0, true},
		{"pim://pages/a/b", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			id, v, err := parsePageURI(tt.uri)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.version, v)
		})
	}
}

func TestResourceText(t *testing.T) {
	ec, s := setup(t)
	ctx := context.Background()

	kb, err := s.CreateKnowledgeBase(ctx, store.NewKnowledgeBase{Name: "Work"})
	require.NoError(t, err)
	p, err := s.CreatePage(ctx, store.NewPage{KBID: kb.ID, Title: "Plan"})
	require.NoError(t, err)
	v, err := s.SavePageContent(ctx, p.ID, `{"blocks":[{"type":"paragraph","data":{"text":"first"}}]}`, true)
	require.NoError(t, err)
	_, err = s.SavePageContent(ctx, p.ID, `{"blocks":[{"type":"paragraph","data":{"text":"second"}}]}`, false)
	require.NoError(t, err)

	text, err := resourceText(ctx, ec, "pim://pages/"+p.ID)
	require.NoError(t, err)
	assert.Equal(t, "# Plan\n\nsecond\n", text)

	text, err = resourceText(ctx, ec, "pim://pages/"+p.ID+"/v/"+strconv.Itoa(v))
	require.NoError(t, err)
	assert.Contains(t, text, "first")

	_, err = resourceText(ctx, ec, "pim://pages/missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = resourceText(ctx, ec, "pim://elsewhere/x")
	assert.ErrorIs(t, err, ErrInvalidURI)
}

func TestResourceText_Card(t *testing.T) {
	ec, s := setup(t)
	ctx := context.Background()
	box, err := s.CreateCardBox(ctx, store.NewCardBox{Name: "Ideas"})
	require.NoError(t, err)
	c, err := s.CreateCard(ctx, store.NewCard{BoxID: box.ID, Title: "Idea", Content: "body"})
	require.NoError(t, err)

	text, err := resourceText(ctx, ec, "pim://cards/"+c.ID)
	require.NoError(t, err)
	assert.Equal(t, "# Idea\n\nbody\n", text)
}

func TestNew_CallsExtensionTool(t *testing.T) {
	ec, _ := setup(t)
	echo := extension.MCPTool{
		Tool: mcp.NewTool("pim_test_echo", mcp.WithString("text")),
		Handler: func(_ context.Context, got extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			assert.Equal(t, ec, got)
			return mcp.NewToolResultText("echo:" + extension.String(req, "text", "")), nil
		},
	}
	s := New(ec, []extension.MCPTool{echo})
	ctx := context.Background()

	s.HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`))

	resp := s.HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(b), "pim_test_echo")

	resp = s.HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"pim_test_echo","arguments":{"text":"hi"}}}`))
	b, err = json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(b), "echo:hi")
}
