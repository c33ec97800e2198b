package book

import (
	"context"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

func tools() []extension.MCPTool {
	return []extension.MCPTool{
		{Tool: mcp.NewTool("pim_book_list",
			mcp.WithDescription("List books on the reading list"),
			mcp.WithString("status", mcp.Enum(store.BookWanted, store.BookReading, store.BookFinished)),
		), Handler: bookList},
		{Tool: mcp.NewTool("pim_book_get",
			mcp.WithDescription("Read a book with its notes and highlights"),
			mcp.WithString("id", mcp.Required()),
		), Handler: bookGet},
		{Tool: mcp.NewTool("pim_book_create",
			mcp.WithDescription("Add a book to the reading list"),
			mcp.WithString("title", mcp.Required()),
			mcp.WithString("author"),
			mcp.WithString("status"),
			mcp.WithNumber("total_pages"),
		), Handler: bookCreate},
		{Tool: mcp.NewTool("pim_book_progress",
			mcp.WithDescription("Record reading progress, status or rating"),
			mcp.WithString("id", mcp.Required()),
			mcp.WithNumber("current_page"),
			mcp.WithString("status"),
			mcp.WithNumber("rating", mcp.Description("0-5")),
		), Handler: bookProgress},
		{Tool: mcp.NewTool("pim_book_note",
			mcp.WithDescription("Add a reading note to a book"),
			mcp.WithString("book_id", mcp.Required()),
			mcp.WithString("content", mcp.Required()),
			mcp.WithString("chapter"),
			mcp.WithNumber("page"),
			mcp.WithString("type", mcp.Enum("note", "thought", "summary")),
		), Handler: bookNote},
		{Tool: mcp.NewTool("pim_book_search",
			mcp.WithDescription("Search book titles, authors, descriptions and tags"),
			mcp.WithString("query", mcp.Required()),
		), Handler: bookSearch},
	}
}

func mcpEvent(action, kind, id string) *log.Builder {
	l := log.Event("mcp:book", action).Author("mcp")
	if id != "" {
		l = l.Entity(kind, id)
	}
	return l
}

func bookList(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bs, err := ec.Store().Books(ctx, extension.OptString(req, "status"))
	mcpEvent("book_list", "book", "").Write(err)
	return cmd.ToolResult(bs, err)
}

func bookGet(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	st := ec.Store()
	b, err := st.Book(ctx, id)
	var notes []store.ReadingNote
	var hs []store.Highlight
	if err == nil {
		notes, err = st.ReadingNotes(ctx, id)
	}
	if err == nil {
		hs, err = st.Highlights(ctx, id)
	}
	mcpEvent("book_get", "book", id).Write(err)
	if err != nil {
		return cmd.ToolResult(nil, err)
	}
	return mcp.NewToolResultText(bookMarkdown(b, notes, hs)), nil
}

func bookCreate(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := ec.Store().CreateBook(ctx, store.NewBook{
		Title:      extension.String(req, "title", ""),
		Author:     extension.OptString(req, "author"),
		Status:     extension.String(req, "status", ""),
		TotalPages: extension.OptInt64(req, "total_pages"),
	})
	id := ""
	if b != nil {
		id = b.ID
	}
	mcpEvent("book_create", "book", id).Write(err)
	return cmd.ToolResult(b, err)
}

func bookProgress(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	b, err := ec.Store().UpdateBook(ctx, id, store.BookPatch{
		CurrentPage: extension.OptInt64(req, "current_page"),
		Status:      extension.OptString(req, "status"),
		Rating:      extension.OptInt64(req, "rating"),
	})
	mcpEvent("book_progress", "book", id).Write(err)
	return cmd.ToolResult(b, err)
}

func bookNote(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := ec.Store().CreateReadingNote(ctx, store.ReadingNote{
		BookID:     extension.String(req, "book_id", ""),
		Content:    extension.String(req, "content", ""),
		Chapter:    extension.OptString(req, "chapter"),
		PageNumber: extension.OptInt64(req, "page"),
		NoteType:   extension.String(req, "type", "note"),
	})
	id := ""
	if n != nil {
		id = n.ID
	}
	mcpEvent("book_note", "note", id).Write(err)
	return cmd.ToolResult(n, err)
}

func bookSearch(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := extension.String(req, "query", "")
	bs, err := ec.Store().SearchBooks(ctx, q)
	mcpEvent("book_search", "book", "").Detail("query", q).Write(err)
	return cmd.ToolResult(bs, err)
}
