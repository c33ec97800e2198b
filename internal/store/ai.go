// ai.go stores AI chat conversations, their messages, provider settings and
// agent presets. Saves are upserts keyed by id (conversations, messages),
// provider name, or agent id. At most one provider and one agent are
// current; marking one current clears the rest in the same transaction.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jpl-au/pim/internal/validate"
)

// Conversation is an AI chat thread.
type Conversation struct {
	ID        string `json:"id"`
	Title     string `json:"title" validate:"notblank"`
	Provider  string `json:"provider" validate:"oneof=deepseek claude"`
	Model     string `json:"model" validate:"notblank"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Message is one turn of a conversation. Timestamp is milliseconds and
// orders the conversation.
type Message struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id" validate:"required"`
	Role           string  `json:"role" validate:"oneof=user assistant system"`
	Content        string  `json:"content"`
	Provider       *string `json:"provider,omitempty"`
	Model          *string `json:"model,omitempty"`
	Error          bool    `json:"error"`
	Timestamp      int64   `json:"timestamp"`
	CreatedAt      string  `json:"created_at"`
}

// Provider holds the connection settings for one AI provider.
type Provider struct {
	ID           int64   `json:"id"`
	Provider     string  `json:"provider" validate:"notblank"`
	APIKey       string  `json:"api_key"`
	BaseURL      *string `json:"base_url,omitempty" validate:"omitempty,url"`
	Model        string  `json:"model" validate:"notblank"`
	Temperature  float64 `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int     `json:"max_tokens" validate:"gte=0"`
	SystemPrompt *string `json:"system_prompt,omitempty"`
	Enabled      bool    `json:"enabled"`
	IsCurrent    bool    `json:"is_current"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// Agent is a named system-prompt preset. Built-in agents cannot be deleted.
type Agent struct {
	ID           int64   `json:"id"`
	AgentID      string  `json:"agent_id" validate:"notblank"`
	Name         string  `json:"name" validate:"notblank"`
	Description  string  `json:"description"`
	Icon         string  `json:"icon"`
	SystemPrompt string  `json:"system_prompt" validate:"notblank"`
	Temperature  float64 `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int     `json:"max_tokens" validate:"gte=0"`
	Provider     *string `json:"provider,omitempty"`
	Model        *string `json:"model,omitempty"`
	IsBuiltin    bool    `json:"is_builtin"`
	IsCurrent    bool    `json:"is_current"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

const (
	defaultAgentIcon = "🤖"
	defaultMaxTokens = 2000
)

const conversationColumns = `c.id, c.title, c.provider, c.model, COALESCE(c.created_at, ''), COALESCE(c.updated_at, '')`

const messageColumns = `id, conversation_id, role, content, provider, model, COALESCE(error, 0), timestamp,
	COALESCE(created_at, '')`

const providerColumns = `id, provider, api_key, base_url, model, temperature, max_tokens, system_prompt,
	enabled, is_current, COALESCE(created_at, ''), COALESCE(updated_at, '')`

const agentColumns = `id, agent_id, name, description, icon, system_prompt, temperature, max_tokens,
	provider, model, is_builtin, is_current, COALESCE(created_at, ''), COALESCE(updated_at, '')`

func scanConversation(sc scanner) (Conversation, error) {
	var c Conversation
	return c, sc.Scan(&c.ID, &c.Title, &c.Provider, &c.Model, &c.CreatedAt, &c.UpdatedAt)
}

func scanMessage(sc scanner) (Message, error) {
	var m Message
	var provider, model sql.NullString
	err := sc.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &provider, &model,
		&m.Error, &m.Timestamp, &m.CreatedAt)
	m.Provider, m.Model = strPtr(provider), strPtr(model)
	return m, err
}

func scanProvider(sc scanner) (Provider, error) {
	var p Provider
	var base, prompt sql.NullString
	err := sc.Scan(&p.ID, &p.Provider, &p.APIKey, &base, &p.Model, &p.Temperature, &p.MaxTokens,
		&prompt, &p.Enabled, &p.IsCurrent, &p.CreatedAt, &p.UpdatedAt)
	p.BaseURL, p.SystemPrompt = strPtr(base), strPtr(prompt)
	return p, err
}

func scanAgent(sc scanner) (Agent, error) {
	var a Agent
	var provider, model sql.NullString
	err := sc.Scan(&a.ID, &a.AgentID, &a.Name, &a.Description, &a.Icon, &a.SystemPrompt,
		&a.Temperature, &a.MaxTokens, &provider, &model, &a.IsBuiltin, &a.IsCurrent,
		&a.CreatedAt, &a.UpdatedAt)
	a.Provider, a.Model = strPtr(provider), strPtr(model)
	return a, err
}

func getConversation(ctx context.Context, q querier, id string) (*Conversation, error) {
	c, err := scanConversation(q.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM ai_conversations c WHERE c.id = ?`, id))
	return one(c, err, "conversation")
}

func upsertConversation(ctx context.Context, q querier, c *Conversation) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO ai_conversations (id, title, provider, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			provider = excluded.provider,
			model = excluded.model,
			updated_at = excluded.updated_at`,
		c.ID, c.Title, c.Provider, c.Model, c.CreatedAt, c.UpdatedAt)
	return err
}

func upsertMessage(ctx context.Context, q querier, m *Message) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO ai_messages (id, conversation_id, role, content, provider, model, error, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			provider = excluded.provider,
			model = excluded.model,
			error = excluded.error`,
		m.ID, m.ConversationID, m.Role, m.Content, nullString(m.Provider), nullString(m.Model),
		boolInt(m.Error), m.Timestamp, m.CreatedAt)
	return err
}

// prepareConversation fills the id and timestamps SaveConversation needs.
func (s *SQLiteStore) prepareConversation(c *Conversation) error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	now := s.stamp()
	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt == "" {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) prepareMessage(m *Message) error {
	if err := validate.Struct(m); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = newID()
	}
	if m.Timestamp == 0 {
		m.Timestamp = s.now().UnixMilli()
	}
	if m.CreatedAt == "" {
		m.CreatedAt = s.stamp()
	}
	return nil
}

// SaveConversation inserts or updates a conversation. An empty ID is
// assigned; created_at is kept on update.
func (s *SQLiteStore) SaveConversation(ctx context.Context, c Conversation) (*Conversation, error) {
	if err := s.prepareConversation(&c); err != nil {
		return nil, err
	}
	err := s.withConn(ctx, func(q querier) error {
		return upsertConversation(ctx, q, &c)
	})
	if err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	return &c, nil
}

// SaveConversationWithMessages saves a conversation and its messages in one
// transaction.
func (s *SQLiteStore) SaveConversationWithMessages(ctx context.Context, c Conversation, msgs []Message) (*Conversation, error) {
	if err := s.prepareConversation(&c); err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].ConversationID = c.ID
		if err := s.prepareMessage(&msgs[i]); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if err := upsertConversation(ctx, tx, &c); err != nil {
			return err
		}
		for i := range msgs {
			if err := upsertMessage(ctx, tx, &msgs[i]); err != nil {
				return fmt.Errorf("message %s: %w", msgs[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save conversation %s: %w", c.ID, err)
	}
	return &c, nil
}

// Conversations lists conversations, most recently active first. limit <= 0
// means no limit.
func (s *SQLiteStore) Conversations(ctx context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = -1
	}
	var out []Conversation
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+conversationColumns+` FROM ai_conversations c ORDER BY c.updated_at DESC LIMIT ?`, limit)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanConversation)
		return err
	})
	return out, err
}

// Conversation returns one conversation or ErrNotFound.
func (s *SQLiteStore) Conversation(ctx context.Context, id string) (*Conversation, error) {
	var c *Conversation
	err := s.withConn(ctx, func(q querier) error {
		var err error
		c, err = getConversation(ctx, q, id)
		return err
	})
	return c, err
}

// Messages returns a conversation's messages in timestamp order.
func (s *SQLiteStore) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	var out []Message
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+messageColumns+` FROM ai_messages WHERE conversation_id = ? ORDER BY timestamp ASC`,
			conversationID)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanMessage)
		return err
	})
	return out, err
}

// SaveMessage inserts or updates one message and bumps the conversation's
// updated_at in the same transaction.
func (s *SQLiteStore) SaveMessage(ctx context.Context, m Message) (*Message, error) {
	if err := s.prepareMessage(&m); err != nil {
		return nil, err
	}
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := getConversation(ctx, tx, m.ConversationID); err != nil {
			return fmt.Errorf("conversation %s: %w", m.ConversationID, err)
		}
		if err := upsertMessage(ctx, tx, &m); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE ai_conversations SET updated_at = ? WHERE id = ?`, s.stamp(), m.ConversationID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	return &m, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM ai_conversations WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete conversation %s: %w", id, err)
		}
		return affected(res)
	})
}

// RenameConversation changes a conversation's title.
func (s *SQLiteStore) RenameConversation(ctx context.Context, id, title string) error {
	if err := validate.Var("title", title, "notblank"); err != nil {
		return err
	}
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx,
			`UPDATE ai_conversations SET title = ?, updated_at = ? WHERE id = ?`, title, s.stamp(), id)
		if err != nil {
			return fmt.Errorf("rename conversation %s: %w", id, err)
		}
		return affected(res)
	})
}

// SearchConversations matches conversations whose title or any message
// contains query.
func (s *SQLiteStore) SearchConversations(ctx context.Context, query string, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = s.opts.SearchLimit
	}
	pat := like(query)
	var out []Conversation
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+conversationColumns+` FROM ai_conversations c
			WHERE c.title LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM ai_messages m WHERE m.conversation_id = c.id AND m.content LIKE ? ESCAPE '\')
			ORDER BY c.updated_at DESC LIMIT ?`, pat, pat, limit)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanConversation)
		return err
	})
	return out, err
}

// CleanupConversations deletes conversations idle for longer than olderThan
// and returns how many were removed.
func (s *SQLiteStore) CleanupConversations(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-olderThan).Format(stampLayout)
	var n int64
	err := s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM ai_conversations WHERE updated_at < ?`, cutoff)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup conversations: %w", err)
	}
	return int(n), nil
}

func getProvider(ctx context.Context, q querier, name string) (*Provider, error) {
	p, err := scanProvider(q.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM ai_providers WHERE provider = ?`, name))
	return one(p, err, "provider")
}

// SaveProvider inserts or updates a provider by name. Saving one as current
// clears the flag on every other provider.
func (s *SQLiteStore) SaveProvider(ctx context.Context, p Provider) (*Provider, error) {
	if p.MaxTokens == 0 {
		p.MaxTokens = defaultMaxTokens
	}
	if err := validate.Struct(p); err != nil {
		return nil, err
	}
	var out *Provider
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		now := s.stamp()
		if p.IsCurrent {
			if _, err := tx.ExecContext(ctx,
				`UPDATE ai_providers SET is_current = 0 WHERE provider != ?`, p.Provider); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ai_providers (provider, api_key, base_url, model, temperature, max_tokens, system_prompt,
				enabled, is_current, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(provider) DO UPDATE SET
				api_key = excluded.api_key,
				base_url = excluded.base_url,
				model = excluded.model,
				temperature = excluded.temperature,
				max_tokens = excluded.max_tokens,
				system_prompt = excluded.system_prompt,
				enabled = excluded.enabled,
				is_current = excluded.is_current,
				updated_at = excluded.updated_at`,
			p.Provider, p.APIKey, nullString(p.BaseURL), p.Model, p.Temperature, p.MaxTokens,
			nullString(p.SystemPrompt), boolInt(p.Enabled), boolInt(p.IsCurrent), now, now); err != nil {
			return err
		}
		var err error
		out, err = getProvider(ctx, tx, p.Provider)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save provider %s: %w", p.Provider, err)
	}
	return out, nil
}

// Providers lists providers by name.
func (s *SQLiteStore) Providers(ctx context.Context) ([]Provider, error) {
	var out []Provider
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx, `SELECT `+providerColumns+` FROM ai_providers ORDER BY provider`)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanProvider)
		return err
	})
	return out, err
}

// Provider returns one provider by name or ErrNotFound.
func (s *SQLiteStore) Provider(ctx context.Context, name string) (*Provider, error) {
	var p *Provider
	err := s.withConn(ctx, func(q querier) error {
		var err error
		p, err = getProvider(ctx, q, name)
		return err
	})
	return p, err
}

// DeleteProvider removes a provider by name.
func (s *SQLiteStore) DeleteProvider(ctx context.Context, name string) error {
	return s.withConn(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx, `DELETE FROM ai_providers WHERE provider = ?`, name)
		if err != nil {
			return fmt.Errorf("delete provider %s: %w", name, err)
		}
		return affected(res)
	})
}

// SetCurrentProvider marks one provider current and clears the others.
func (s *SQLiteStore) SetCurrentProvider(ctx context.Context, name string) error {
	return s.setCurrent(ctx, "ai_providers", "provider", name)
}

// CurrentProvider returns the current provider or ErrNotFound.
func (s *SQLiteStore) CurrentProvider(ctx context.Context) (*Provider, error) {
	var p *Provider
	err := s.withConn(ctx, func(q querier) error {
		v, err := scanProvider(q.QueryRowContext(ctx,
			`SELECT `+providerColumns+` FROM ai_providers WHERE is_current = 1 LIMIT 1`))
		p, err = one(v, err, "current provider")
		return err
	})
	return p, err
}

// setCurrent flips is_current to key = value within table. Both names are
// package constants.
func (s *SQLiteStore) setCurrent(ctx context.Context, table, key, value string) error {
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		now := s.stamp()
		res, err := tx.ExecContext(ctx,
			`UPDATE `+table+` SET is_current = 1, updated_at = ? WHERE `+key+` = ?`, now, value)
		if err != nil {
			return err
		}
		if err := affected(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE `+table+` SET is_current = 0, updated_at = ? WHERE `+key+` != ? AND is_current = 1`, now, value)
		return err
	})
	if err != nil {
		return fmt.Errorf("set current %s: %w", value, err)
	}
	return nil
}

func getAgent(ctx context.Context, q querier, agentID string) (*Agent, error) {
	a, err := scanAgent(q.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM ai_agents WHERE agent_id = ?`, agentID))
	return one(a, err, "agent")
}

// SaveAgent inserts or updates an agent by agent id. Saving one as current
// clears the flag on every other agent.
func (s *SQLiteStore) SaveAgent(ctx context.Context, a Agent) (*Agent, error) {
	if a.Icon == "" {
		a.Icon = defaultAgentIcon
	}
	if a.MaxTokens == 0 {
		a.MaxTokens = defaultMaxTokens
	}
	if err := validate.Struct(a); err != nil {
		return nil, err
	}
	var out *Agent
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		now := s.stamp()
		if a.IsCurrent {
			if _, err := tx.ExecContext(ctx,
				`UPDATE ai_agents SET is_current = 0 WHERE agent_id != ?`, a.AgentID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ai_agents (agent_id, name, description, icon, system_prompt, temperature, max_tokens,
				provider, model, is_builtin, is_current, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(agent_id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				icon = excluded.icon,
				system_prompt = excluded.system_prompt,
				temperature = excluded.temperature,
				max_tokens = excluded.max_tokens,
				provider = excluded.provider,
				model = excluded.model,
				is_current = excluded.is_current,
				updated_at = excluded.updated_at`,
			a.AgentID, a.Name, a.Description, a.Icon, a.SystemPrompt, a.Temperature, a.MaxTokens,
			nullString(a.Provider), nullString(a.Model), boolInt(a.IsBuiltin), boolInt(a.IsCurrent),
			now, now); err != nil {
			return err
		}
		var err error
		out, err = getAgent(ctx, tx, a.AgentID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save agent %s: %w", a.AgentID, err)
	}
	return out, nil
}

// Agents lists built-in agents first, then custom ones in creation order.
func (s *SQLiteStore) Agents(ctx context.Context) ([]Agent, error) {
	var out []Agent
	err := s.withConn(ctx, func(q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+agentColumns+` FROM ai_agents ORDER BY is_builtin DESC, created_at ASC, id ASC`)
		if err != nil {
			return err
		}
		out, err = collect(rows, scanAgent)
		return err
	})
	return out, err
}

// Agent returns one agent by agent id or ErrNotFound.
func (s *SQLiteStore) Agent(ctx context.Context, agentID string) (*Agent, error) {
	var a *Agent
	err := s.withConn(ctx, func(q querier) error {
		var err error
		a, err = getAgent(ctx, q, agentID)
		return err
	})
	return a, err
}

// DeleteAgent removes a custom agent. Built-in agents return
// ErrBuiltinAgent.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, agentID string) error {
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		a, err := getAgent(ctx, tx, agentID)
		if err != nil {
			return err
		}
		if a.IsBuiltin {
			return ErrBuiltinAgent
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM ai_agents WHERE agent_id = ?`, agentID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete agent %s: %w", agentID, err)
	}
	return nil
}

// SetCurrentAgent marks one agent current and clears the others.
func (s *SQLiteStore) SetCurrentAgent(ctx context.Context, agentID string) error {
	return s.setCurrent(ctx, "ai_agents", "agent_id", agentID)
}

// CurrentAgent returns the current agent or ErrNotFound.
func (s *SQLiteStore) CurrentAgent(ctx context.Context) (*Agent, error) {
	var a *Agent
	err := s.withConn(ctx, func(q querier) error {
		v, err := scanAgent(q.QueryRowContext(ctx,
			`SELECT `+agentColumns+` FROM ai_agents WHERE is_current = 1 LIMIT 1`))
		a, err = one(v, err, "current agent")
		return err
	})
	return a, err
}
