package knowledge

import (
	"context"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/jpl-au/pim/internal/validate"
	"github.com/mark3labs/mcp-go/mcp"
)

type handler = extension.MCPHandler

func tool(t mcp.Tool, h handler) extension.MCPTool {
	return extension.MCPTool{Tool: t, Handler: h}
}

func mcpEvent(action, kind, id string) *log.Builder {
	return log.Event("mcp:knowledge", action).Author("mcp").Entity(kind, id)
}

func tools() []extension.MCPTool {
	return []extension.MCPTool{
		tool(mcp.NewTool("pim_kb_list",
			mcp.WithDescription("List knowledge bases"),
		), kbList),
		tool(mcp.NewTool("pim_kb_create",
			mcp.WithDescription("Create a knowledge base"),
			mcp.WithString("name", mcp.Required()),
			mcp.WithString("icon"),
			mcp.WithString("description"),
		), kbCreate),
		tool(mcp.NewTool("pim_page_list",
			mcp.WithDescription("List the page tree of a knowledge base (depth-first, with depth)"),
			mcp.WithString("kb_id", mcp.Required()),
		), pageList),
		tool(mcp.NewTool("pim_page_get",
			mcp.WithDescription("Read a page as markdown, optionally a stored version"),
			mcp.WithString("id", mcp.Required()),
			mcp.WithNumber("version", mcp.Description("Stored version number (default: current content)")),
		), pageGet),
		tool(mcp.NewTool("pim_page_create",
			mcp.WithDescription("Create a page. Plain-text content is converted to Editor.js blocks"),
			mcp.WithString("kb_id", mcp.Required()),
			mcp.WithString("title"),
			mcp.WithString("parent_id"),
			mcp.WithString("content"),
			mcp.WithString("after", mcp.Description("Place after this sibling id")),
			mcp.WithString("before", mcp.Description("Place before this sibling id")),
		), pageCreate),
		tool(mcp.NewTool("pim_page_update",
			mcp.WithDescription("Change a page's title and/or content"),
			mcp.WithString("id", mcp.Required()),
			mcp.WithString("title"),
			mcp.WithString("content"),
			mcp.WithBoolean("snapshot", mcp.Description("Record the new content as a version")),
		), pageUpdate),
		tool(mcp.NewTool("pim_page_move",
			mcp.WithDescription("Move a page under a new parent (empty for root)"),
			mcp.WithString("id", mcp.Required()),
			mcp.WithString("parent_id"),
			mcp.WithString("after"),
			mcp.WithString("before"),
		), pageMove),
		tool(mcp.NewTool("pim_page_delete",
			mcp.WithDescription("Move a page and its subpages to the trash"),
			mcp.WithString("id", mcp.Required()),
		), pageDelete),
		tool(mcp.NewTool("pim_page_restore",
			mcp.WithDescription("Restore a page from the trash"),
			mcp.WithString("id", mcp.Required()),
		), pageRestore),
		tool(mcp.NewTool("pim_page_versions",
			mcp.WithDescription("List the stored versions of a page"),
			mcp.WithString("id", mcp.Required()),
		), pageVersions),
		tool(mcp.NewTool("pim_page_tag",
			mcp.WithDescription("Add or remove a page tag"),
			mcp.WithString("id", mcp.Required()),
			mcp.WithString("tag", mcp.Required()),
			mcp.WithBoolean("remove"),
		), pageTag),
		tool(mcp.NewTool("pim_page_link",
			mcp.WithDescription("Link two pages, or remove the link"),
			mcp.WithString("from", mcp.Required()),
			mcp.WithString("to", mcp.Required()),
			mcp.WithBoolean("remove"),
		), pageLink),
		tool(mcp.NewTool("pim_block_list",
			mcp.WithDescription("List the blocks of a page in order"),
			mcp.WithString("page_id", mcp.Required()),
			mcp.WithString("parent_id", mcp.Description("Only children of this block; empty for top-level blocks")),
		), blockList),
		tool(mcp.NewTool("pim_block_create",
			mcp.WithDescription("Add a block to a page"),
			mcp.WithString("page_id", mcp.Required()),
			mcp.WithString("type", mcp.Description("Block type (default paragraph)")),
			mcp.WithString("content"),
			mcp.WithString("data", mcp.Description("Block data as JSON")),
			mcp.WithString("parent_id"),
		), blockCreate),
		tool(mcp.NewTool("pim_search",
			mcp.WithDescription("Full-text search over pages and blocks (FTS5 syntax)"),
			mcp.WithString("query", mcp.Required()),
		), search),
	}
}

func kbList(ctx context.Context, ec extension.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kbs, err := ec.Store().KnowledgeBases(ctx)
	log.Event("mcp:knowledge", "kb_list").Author("mcp").Write(err)
	return cmd.ToolResult(kbs, err)
}

func kbCreate(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kb, err := ec.Store().CreateKnowledgeBase(ctx, store.NewKnowledgeBase{
		Name:        extension.String(req, "name", ""),
		Icon:        extension.String(req, "icon", ""),
		Description: extension.OptString(req, "description"),
	})
	id := ""
	if kb != nil {
		id = kb.ID
	}
	mcpEvent("kb_create", "knowledge_base", id).Write(err)
	return cmd.ToolResult(kb, err)
}

func pageList(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kb := extension.String(req, "kb_id", "")
	nodes, err := ec.Store().PageTree(ctx, kb)
	mcpEvent("page_list", "knowledge_base", kb).Write(err)
	return cmd.ToolResult(nodes, err)
}

func pageGet(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	v := extension.Int(req, "version", 0)
	st := ec.Store()
	l := mcpEvent("page_get", "page", id).Detail("version", v)

	p, err := st.Page(ctx, id, false)
	if err != nil {
		l.Write(err)
		return cmd.ToolResult(nil, err)
	}
	var content string
	if v > 0 {
		var pv *store.PageVersion
		if pv, err = st.PageVersion(ctx, id, v); err == nil {
			content = pv.Content
		}
	} else {
		content, err = st.PageContent(ctx, id)
	}
	l.Write(err)
	if err != nil {
		return cmd.ToolResult(nil, err)
	}
	return mcp.NewToolResultText(format.PageMarkdown(p.Title, content)), nil
}

func pageCreate(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := store.NewPage{
		KBID:     extension.String(req, "kb_id", ""),
		Title:    extension.String(req, "title", ""),
		ParentID: extension.OptString(req, "parent_id"),
		Placement: store.Placement{
			After:  extension.String(req, "after", ""),
			Before: extension.String(req, "before", ""),
		},
	}
	if c := extension.OptString(req, "content"); c != nil {
		content := format.EditorJSON(*c)
		in.Content = &content
	}
	p, err := ec.Store().CreatePage(ctx, in)
	err = warnIndex(err)
	id := ""
	if p != nil {
		id = p.ID
	}
	mcpEvent("page_create", "page", id).Write(err)
	if err == nil {
		extension.Fire(ec, extension.PageWriteEvent{PageID: id, KBID: in.KBID, Author: cmd.Author(), Created: true})
	}
	return cmd.ToolResult(p, err)
}

func pageUpdate(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	st := ec.Store()
	l := mcpEvent("page_update", "page", id)

	if title := extension.OptString(req, "title"); title != nil {
		if _, err := st.UpdatePage(ctx, id, store.PagePatch{Title: title}); warnIndex(err) != nil {
			l.Write(err)
			return cmd.ToolResult(nil, err)
		}
	}
	version := 0
	if c := extension.OptString(req, "content"); c != nil {
		var err error
		version, err = st.SavePageContent(ctx, id, format.EditorJSON(*c), extension.Bool(req, "snapshot", false))
		if err = warnIndex(err); err != nil {
			l.Write(err)
			return cmd.ToolResult(nil, err)
		}
	}
	l.Detail("version", version).Write(nil)
	extension.Fire(ec, extension.PageWriteEvent{PageID: id, Author: cmd.Author()})
	return cmd.ToolResult(map[string]any{"id": id, "version": version}, nil)
}

func pageMove(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	parent := extension.OptString(req, "parent_id")
	if parent != nil && *parent == "" {
		parent = nil
	}
	p, err := ec.Store().MovePage(ctx, id, parent, store.Placement{
		After:  extension.String(req, "after", ""),
		Before: extension.String(req, "before", ""),
	})
	mcpEvent("page_move", "page", id).Write(err)
	return cmd.ToolResult(p, err)
}

func pageDelete(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	n, err := ec.Store().DeletePage(ctx, id)
	mcpEvent("page_delete", "page", id).Detail("count", n).Write(err)
	if err == nil {
		extension.Fire(ec, extension.PageDeleteEvent{PageID: id, Count: n})
	}
	return cmd.ToolResult(map[string]any{"deleted": id, "count": n}, err)
}

func pageRestore(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	p, err := ec.Store().RestorePage(ctx, id)
	err = warnIndex(err)
	mcpEvent("page_restore", "page", id).Write(err)
	if err == nil {
		extension.Fire(ec, extension.PageRestoreEvent{PageID: id})
	}
	return cmd.ToolResult(p, err)
}

func pageVersions(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	vs, err := ec.Store().PageVersions(ctx, id)
	mcpEvent("page_versions", "page", id).Write(err)
	return cmd.ToolResult(vs, err)
}

func pageTag(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	tag, err := validate.Tag(extension.String(req, "tag", ""))
	remove := extension.Bool(req, "remove", false)
	if err == nil {
		if remove {
			err = ec.Store().UntagPage(ctx, id, tag)
		} else {
			err = ec.Store().TagPage(ctx, id, tag)
		}
	}
	mcpEvent("page_tag", "page", id).Detail("tag", tag).Detail("remove", remove).Write(err)
	return cmd.ToolResult(map[string]any{"page": id, "tag": tag, "removed": remove}, err)
}

func pageLink(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to := extension.String(req, "from", ""), extension.String(req, "to", "")
	remove := extension.Bool(req, "remove", false)
	err := validate.Link(from, to)
	if err == nil {
		if remove {
			err = ec.Store().UnlinkPages(ctx, from, to)
		} else {
			err = ec.Store().LinkPages(ctx, from, to)
		}
	}
	mcpEvent("page_link", "page", from).Detail("to", to).Detail("remove", remove).Write(err)
	if err == nil {
		extension.Fire(ec, extension.LinkEvent{From: from, To: to, Created: !remove})
	}
	return cmd.ToolResult(map[string]any{"from": from, "to": to, "removed": remove}, err)
}

func blockList(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "page_id", "")
	parent := extension.OptString(req, "parent_id")
	blocks, err := ec.Store().Blocks(ctx, id, parent)
	mcpEvent("block_list", "page", id).Write(err)
	return cmd.ToolResult(blocks, err)
}

func blockCreate(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := ec.Store().CreateBlock(ctx, store.NewBlock{
		PageID:   extension.String(req, "page_id", ""),
		Type:     extension.String(req, "type", "paragraph"),
		Content:  extension.String(req, "content", ""),
		Data:     extension.String(req, "data", ""),
		ParentID: extension.OptString(req, "parent_id"),
	})
	err = warnIndex(err)
	id := ""
	if b != nil {
		id = b.ID
	}
	mcpEvent("block_create", "block", id).Write(err)
	return cmd.ToolResult(b, err)
}

func search(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := extension.String(req, "query", "")
	hits, err := ec.Store().SearchContent(ctx, q)
	log.Event("mcp:knowledge", "search").Author("mcp").Detail("query", q).Detail("hits", len(hits)).Write(err)
	return cmd.ToolResult(hits, err)
}
