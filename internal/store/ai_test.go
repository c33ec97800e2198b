package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/jpl-au/pim/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_SaveWithMessages(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	c, err := s.SaveConversationWithMessages(ctx,
		store.Conversation{Title: "Go generics", Provider: "claude", Model: "m1"},
		[]store.Message{
			{Role: "user", Content: "what are type sets?", Timestamp: 1},
			{Role: "assistant", Content: "interfaces listing types", Timestamp: 2},
		})
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)

	msgs, err := s.Messages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)

	// Resaving must not cascade away the messages.
	c.Title = "Generics"
	_, err = s.SaveConversation(ctx, *c)
	require.NoError(t, err)
	msgs, err = s.Messages(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	_, err = s.SaveConversationWithMessages(ctx, *c, []store.Message{{Role: "robot"}})
	assert.Error(t, err)
	msgs, err = s.Messages(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	found, err := s.SearchConversations(ctx, "type sets", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Generics", found[0].Title)

	require.NoError(t, s.DeleteConversation(ctx, c.ID))
	assert.Equal(t, 0, count(t, s, `SELECT COUNT(*) FROM ai_messages`))
}

func TestConversation_RenameAndValidate(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.SaveConversation(ctx, store.Conversation{Title: "x", Provider: "openai", Model: "m"})
	assert.Error(t, err)

	c, err := s.SaveConversation(ctx, store.Conversation{Title: "x", Provider: "deepseek", Model: "m"})
	require.NoError(t, err)
	assert.Error(t, s.RenameConversation(ctx, c.ID, "  "))
	require.NoError(t, s.RenameConversation(ctx, c.ID, "renamed"))
	got, err := s.Conversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.ErrorIs(t, s.RenameConversation(ctx, "missing", "y"), store.ErrNotFound)
}

func TestConversation_Cleanup(t *testing.T) {
	now := fixedNow
	s := setupStoreAt(t, func() time.Time { return now })
	ctx := context.Background()

	_, err := s.SaveConversation(ctx, store.Conversation{Title: "old", Provider: "claude", Model: "m"})
	require.NoError(t, err)
	now = fixedNow.Add(40 * 24 * time.Hour)
	_, err = s.SaveConversation(ctx, store.Conversation{Title: "new", Provider: "claude", Model: "m"})
	require.NoError(t, err)

	n, err := s.CleanupConversations(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	left, err := s.Conversations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].Title)
}

func TestProvider_CurrentIsExclusive(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.CurrentProvider(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.SaveProvider(ctx, store.Provider{Provider: "claude", Model: "m", IsCurrent: true, Temperature: 0.7})
	require.NoError(t, err)
	p, err := s.SaveProvider(ctx, store.Provider{Provider: "deepseek", Model: "d", IsCurrent: true})
	require.NoError(t, err)
	assert.Equal(t, 2000, p.MaxTokens)

	cur, err := s.CurrentProvider(ctx)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", cur.Provider)
	assert.Equal(t, 1, count(t, s, `SELECT COUNT(*) FROM ai_providers WHERE is_current = 1`))

	require.NoError(t, s.SetCurrentProvider(ctx, "claude"))
	cur, err = s.CurrentProvider(ctx)
	require.NoError(t, err)
	assert.Equal(t, "claude", cur.Provider)
	assert.ErrorIs(t, s.SetCurrentProvider(ctx, "nobody"), store.ErrNotFound)

	_, err = s.SaveProvider(ctx, store.Provider{Provider: "claude", Model: "m", Temperature: 3})
	assert.Error(t, err)
	_, err = s.SaveProvider(ctx, store.Provider{Provider: "claude", Model: "m", BaseURL: strp("not a url")})
	assert.Error(t, err)
}

func TestAgent_BuiltinCannotBeDeleted(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.SaveAgent(ctx, store.Agent{AgentID: "writer", Name: "Writer", SystemPrompt: "write", IsBuiltin: true})
	require.NoError(t, err)
	custom, err := s.SaveAgent(ctx, store.Agent{AgentID: "mine", Name: "Mine", SystemPrompt: "help", IsCurrent: true})
	require.NoError(t, err)
	assert.Equal(t, "🤖", custom.Icon)

	agents, err := s.Agents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "writer", agents[0].AgentID)

	err = s.DeleteAgent(ctx, "writer")
	assert.ErrorIs(t, err, store.ErrBuiltinAgent)
	_, err = s.Agent(ctx, "writer")
	require.NoError(t, err)

	require.NoError(t, s.SetCurrentAgent(ctx, "writer"))
	cur, err := s.CurrentAgent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "writer", cur.AgentID)

	require.NoError(t, s.DeleteAgent(ctx, "mine"))
	assert.ErrorIs(t, s.DeleteAgent(ctx, "mine"), store.ErrNotFound)
}

func TestConversation_MessageBumpsUpdatedAtFromClock(t *testing.T) {
	now := fixedNow
	s := setupStoreAt(t, func() time.Time { return now })
	ctx := context.Background()

	old, err := s.SaveConversation(ctx, store.Conversation{Title: "old", Provider: "claude", Model: "m"})
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, store.Message{ConversationID: old.ID, Role: "user", Content: "hi"})
	require.NoError(t, err)
	got, err := s.Conversation(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 10:30:00", got.UpdatedAt)

	now = fixedNow.Add(40 * 24 * time.Hour)
	active, err := s.SaveConversationWithMessages(ctx,
		store.Conversation{Title: "active", Provider: "claude", Model: "m"},
		[]store.Message{{Role: "user", Content: "still here"}})
	require.NoError(t, err)
	got, err = s.Conversation(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-10 10:30:00", got.UpdatedAt)

	n, err := s.CleanupConversations(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	left, err := s.Conversations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "active", left[0].Title)
}
