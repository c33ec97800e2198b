// interfaces.go defines the repository contracts, one per entity family.
//
// The interfaces are granular so consumers depend only on the family they
// use; Store composes them all. SQLiteStore is the only implementation.
//
// Design: pages, blocks and tasks are soft-deleted and stay recoverable until
// Vacuum purges them. Every other family deletes outright; cascades and the
// card-count triggers keep dependent rows consistent.

package store

import (
	"context"
	"database/sql"
	"time"
)

// KnowledgeBases manages knowledge bases.
type KnowledgeBases interface {
	CreateKnowledgeBase(ctx context.Context, in NewKnowledgeBase) (*KnowledgeBase, error)
	KnowledgeBases(ctx context.Context) ([]KnowledgeBase, error)
	KnowledgeBase(ctx context.Context, id string) (*KnowledgeBase, error)
	UpdateKnowledgeBase(ctx context.Context, id string, p KnowledgeBasePatch) (*KnowledgeBase, error)
	// DeleteKnowledgeBase removes the knowledge base with all of its pages,
	// blocks and index rows.
	DeleteKnowledgeBase(ctx context.Context, id string) error
	SearchKnowledgeBases(ctx context.Context, query string) ([]KnowledgeBase, error)
}

// Pages manages pages, their hierarchy, versions, links and tags.
type Pages interface {
	CreatePage(ctx context.Context, in NewPage) (*Page, error)
	// Pages lists the live children of parentID, or the roots when nil.
	Pages(ctx context.Context, kbID string, parentID *string) ([]Page, error)
	AllPages(ctx context.Context, kbID string) ([]Page, error)
	Page(ctx context.Context, id string, includeDeleted bool) (*Page, error)
	UpdatePage(ctx context.Context, id string, patch PagePatch) (*Page, error)
	MovePage(ctx context.Context, id string, parentID *string, at Placement) (*Page, error)
	// DeletePage soft-deletes the page subtree and returns its size.
	DeletePage(ctx context.Context, id string) (int, error)
	RestorePage(ctx context.Context, id string) (*Page, error)
	SearchPages(ctx context.Context, query string) ([]Page, error)
	Breadcrumb(ctx context.Context, id string) ([]Page, error)
	PageTree(ctx context.Context, kbID string) ([]PageNode, error)

	SavePageContent(ctx context.Context, id, content string, snapshot bool) (int, error)
	PageContent(ctx context.Context, id string) (string, error)
	PageVersions(ctx context.Context, pageID string) ([]PageVersion, error)
	PageVersion(ctx context.Context, pageID string, version int) (*PageVersion, error)

	LinkPages(ctx context.Context, from, to string) error
	UnlinkPages(ctx context.Context, from, to string) error
	PageLinks(ctx context.Context, id string) ([]Page, error)
	Backlinks(ctx context.Context, id string) ([]Page, error)

	TagPage(ctx context.Context, pageID, name string) error
	UntagPage(ctx context.Context, pageID, name string) error
	PageTags(ctx context.Context, pageID string) ([]string, error)
	PagesByTag(ctx context.Context, name string) ([]Page, error)
	Tags(ctx context.Context) ([]Tag, error)
}

// Blocks manages the blocks of a page.
type Blocks interface {
	CreateBlock(ctx context.Context, in NewBlock) (*Block, error)
	Blocks(ctx context.Context, pageID string, parentID *string) ([]Block, error)
	Block(ctx context.Context, id string) (*Block, error)
	UpdateBlock(ctx context.Context, id string, patch BlockPatch) (*Block, error)
	MoveBlock(ctx context.Context, id string, parentID *string, at Placement) (*Block, error)
	DeleteBlock(ctx context.Context, id string) (int, error)
	SearchBlocks(ctx context.Context, pageID, query string) ([]Block, error)
}

// Searcher runs full-text queries over pages and blocks.
type Searcher interface {
	SearchContent(ctx context.Context, query string) ([]SearchHit, error)
}

// Cards manages card boxes, cards and card links.
type Cards interface {
	CreateCardBox(ctx context.Context, in NewCardBox) (*CardBox, error)
	CardBoxes(ctx context.Context) ([]CardBox, error)
	CardBox(ctx context.Context, id string) (*CardBox, error)
	UpdateCardBox(ctx context.Context, id string, patch CardBoxPatch) (*CardBox, error)
	// DeleteCardBox returns ErrBoxNotEmpty while the box holds cards.
	DeleteCardBox(ctx context.Context, id string) error
	CheckCardCounts(ctx context.Context) ([]BoxCount, error)

	CreateCard(ctx context.Context, in NewCard) (*Card, error)
	Cards(ctx context.Context, f CardFilter) ([]Card, error)
	Card(ctx context.Context, id string) (*Card, error)
	UpdateCard(ctx context.Context, id string, patch CardPatch) (*Card, error)
	DeleteCard(ctx context.Context, id string) error
	MoveCard(ctx context.Context, id, boxID string) (*Card, error)
	SearchCards(ctx context.Context, query string) ([]Card, error)

	LinkCards(ctx context.Context, from, to, linkType string) (*CardLink, error)
	UnlinkCards(ctx context.Context, from, to string) error
	CardLinks(ctx context.Context, cardID string) ([]CardLink, error)
}

// Tasks manages tasks and projects.
type Tasks interface {
	CreateTask(ctx context.Context, in NewTask) (*Task, error)
	Tasks(ctx context.Context) ([]Task, error)
	TasksByStatus(ctx context.Context, status string) ([]Task, error)
	TasksByProject(ctx context.Context, projectID *int64) ([]Task, error)
	TasksByDateRange(ctx context.Context, start, end *string) ([]Task, error)
	TasksByFilter(ctx context.Context, filter string) ([]Task, error)
	PendingTasks(ctx context.Context, limit int) ([]Task, error)
	Task(ctx context.Context, id int64) (*Task, error)
	UpdateTask(ctx context.Context, id int64, patch TaskPatch) (*Task, error)
	MoveTask(ctx context.Context, id int64, projectID *int64) (*Task, error)
	DeleteTask(ctx context.Context, id int64, hard bool) error
	RestoreTask(ctx context.Context, id int64) (*Task, error)
	SearchTasks(ctx context.Context, query string) ([]Task, error)

	CreateProject(ctx context.Context, in NewProject) (*Project, error)
	Projects(ctx context.Context) ([]Project, error)
	Project(ctx context.Context, id int64) (*Project, error)
	UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (*Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ProjectStats(ctx context.Context, id int64) (*ProjectStats, error)
}

// Habits manages habits and their records.
type Habits interface {
	CreateHabit(ctx context.Context, in NewHabit) (*Habit, error)
	Habits(ctx context.Context, activeOnly bool) ([]Habit, error)
	Habit(ctx context.Context, id int64) (*Habit, error)
	UpdateHabit(ctx context.Context, id int64, patch HabitPatch) (*Habit, error)
	DeleteHabit(ctx context.Context, id int64) error
	RecordHabit(ctx context.Context, habitID int64, date string, count int, notes *string) (*HabitRecord, error)
	HabitRecords(ctx context.Context, habitID int64, start, end *string) ([]HabitRecord, error)
	DeleteHabitRecord(ctx context.Context, id int64) error
	DeleteHabitRecordByDate(ctx context.Context, habitID int64, date string) error
	HabitStats(ctx context.Context, id int64) (*HabitStats, error)
}

// Vault stores password categories, encrypted entries and vault settings.
type Vault interface {
	PasswordCategories(ctx context.Context) ([]PasswordCategory, error)
	CreatePasswordCategory(ctx context.Context, in NewPasswordCategory) (*PasswordCategory, error)
	UpdatePasswordCategory(ctx context.Context, id int64, patch PasswordCategoryPatch) (*PasswordCategory, error)
	DeletePasswordCategory(ctx context.Context, id int64) error

	CreatePasswordEntry(ctx context.Context, in NewPasswordEntry) (*PasswordEntry, error)
	PasswordEntries(ctx context.Context) ([]PasswordEntry, error)
	PasswordEntriesByCategory(ctx context.Context, categoryID *int64) ([]PasswordEntry, error)
	PasswordEntry(ctx context.Context, id int64) (*PasswordEntry, error)
	UpdatePasswordEntry(ctx context.Context, id int64, patch PasswordEntryPatch) (*PasswordEntry, error)
	DeletePasswordEntry(ctx context.Context, id int64) error
	SearchPasswordEntries(ctx context.Context, query string) ([]PasswordEntry, error)
	PasswordSecret(ctx context.Context, id int64) (string, error)

	VaultSettings(ctx context.Context) (*VaultSettings, error)
	SaveVaultSettings(ctx context.Context, salt, check string) error
	RewriteSecrets(ctx context.Context, salt, check string, rewrite func(string) (string, error)) (int, error)
}

// Assistant stores AI conversations, providers and agents.
type Assistant interface {
	SaveConversation(ctx context.Context, c Conversation) (*Conversation, error)
	SaveConversationWithMessages(ctx context.Context, c Conversation, msgs []Message) (*Conversation, error)
	Conversations(ctx context.Context, limit int) ([]Conversation, error)
	Conversation(ctx context.Context, id string) (*Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]Message, error)
	SaveMessage(ctx context.Context, m Message) (*Message, error)
	DeleteConversation(ctx context.Context, id string) error
	RenameConversation(ctx context.Context, id, title string) error
	SearchConversations(ctx context.Context, query string, limit int) ([]Conversation, error)
	CleanupConversations(ctx context.Context, olderThan time.Duration) (int, error)

	SaveProvider(ctx context.Context, p Provider) (*Provider, error)
	Providers(ctx context.Context) ([]Provider, error)
	Provider(ctx context.Context, name string) (*Provider, error)
	DeleteProvider(ctx context.Context, name string) error
	SetCurrentProvider(ctx context.Context, name string) error
	CurrentProvider(ctx context.Context) (*Provider, error)

	SaveAgent(ctx context.Context, a Agent) (*Agent, error)
	Agents(ctx context.Context) ([]Agent, error)
	Agent(ctx context.Context, agentID string) (*Agent, error)
	DeleteAgent(ctx context.Context, agentID string) error
	SetCurrentAgent(ctx context.Context, agentID string) error
	CurrentAgent(ctx context.Context) (*Agent, error)
}

// Library manages books, reading notes and highlights.
type Library interface {
	CreateBook(ctx context.Context, in NewBook) (*Book, error)
	Books(ctx context.Context, status *string) ([]Book, error)
	Book(ctx context.Context, id string) (*Book, error)
	UpdateBook(ctx context.Context, id string, patch BookPatch) (*Book, error)
	DeleteBook(ctx context.Context, id string) error
	SearchBooks(ctx context.Context, query string) ([]Book, error)
	CreateReadingNote(ctx context.Context, n ReadingNote) (*ReadingNote, error)
	ReadingNotes(ctx context.Context, bookID string) ([]ReadingNote, error)
	DeleteReadingNote(ctx context.Context, id string) error
	CreateHighlight(ctx context.Context, h Highlight) (*Highlight, error)
	Highlights(ctx context.Context, bookID string) ([]Highlight, error)
	DeleteHighlight(ctx context.Context, id string) error
}

// Timeline manages timeline entries.
type Timeline interface {
	CreateTimelineEntry(ctx context.Context, e TimelineEntry) (int64, error)
	TimelineByDate(ctx context.Context, date string) ([]TimelineEntry, error)
	RecentTimeline(ctx context.Context, limit int) ([]TimelineEntry, error)
	DeleteTimelineEntry(ctx context.Context, id int64) error
	ImportTimeline(ctx context.Context, entries []TimelineEntry) (int, error)
}

// Maintainer covers schema setup, statistics and housekeeping.
type Maintainer interface {
	Init(ctx context.Context) error
	Stats(ctx context.Context) (*Stats, error)
	DeletedPages(ctx context.Context, kbID string) ([]Page, error)
	DeletedTasks(ctx context.Context) ([]Task, error)
	Vacuum(ctx context.Context, olderThan *time.Duration) (int64, error)
	Checkpoint(ctx context.Context) error
}

// Store combines every repository with transaction access and lifecycle.
type Store interface {
	KnowledgeBases
	Pages
	Blocks
	Searcher
	Cards
	Tasks
	Habits
	Vault
	Assistant
	Library
	Timeline
	Maintainer

	// Tx runs fn in one transaction holding the connection guard. fn must
	// use only tx; calling Store methods from inside fn deadlocks.
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error
	Options() Options
	Close() error
}
