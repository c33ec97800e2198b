package cards

import (
	"context"

	"github.com/jpl-au/pim/cmd"
	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/log"
	"github.com/jpl-au/pim/internal/store"
	"github.com/mark3labs/mcp-go/mcp"
)

func tool(t mcp.Tool, h extension.MCPHandler) extension.MCPTool {
	return extension.MCPTool{Tool: t, Handler: h}
}

func mcpEvent(action, kind, id string) *log.Builder {
	return log.Event("mcp:cards", action).Author("mcp").Entity(kind, id)
}

func tools() []extension.MCPTool {
	return []extension.MCPTool{
		tool(mcp.NewTool("pim_box_list",
			mcp.WithDescription("List card boxes with their card counts"),
		), boxList),
		tool(mcp.NewTool("pim_box_create",
			mcp.WithDescription("Create a card box"),
			mcp.WithString("name", mcp.Required()),
			mcp.WithString("description"),
			mcp.WithString("color"),
			mcp.WithString("icon"),
		), boxCreate),
		tool(mcp.NewTool("pim_card_list",
			mcp.WithDescription("List cards, pinned first"),
			mcp.WithString("box_id"),
			mcp.WithBoolean("include_archived"),
		), cardList),
		tool(mcp.NewTool("pim_card_get",
			mcp.WithDescription("Read a card"),
			mcp.WithString("id", mcp.Required()),
		), cardGet),
		tool(mcp.NewTool("pim_card_create",
			mcp.WithDescription("Create a card in a box"),
			mcp.WithString("box_id", mcp.Required()),
			mcp.WithString("title", mcp.Required()),
			mcp.WithString("content"),
			mcp.WithString("color"),
			mcp.WithArray("tags", mcp.WithStringItems()),
		), cardCreate),
		tool(mcp.NewTool("pim_card_update",
			mcp.WithDescription("Change a card. Tags, when given, replace the set"),
			mcp.WithString("id", mcp.Required()),
			mcp.WithString("title"),
			mcp.WithString("content"),
			mcp.WithString("color"),
			mcp.WithArray("tags", mcp.WithStringItems()),
			mcp.WithBoolean("pinned"),
			mcp.WithBoolean("archived"),
		), cardUpdate),
		tool(mcp.NewTool("pim_card_move",
			mcp.WithDescription("Move a card to another box"),
			mcp.WithString("id", mcp.Required()),
			mcp.WithString("box_id", mcp.Required()),
		), cardMove),
		tool(mcp.NewTool("pim_card_delete",
			mcp.WithDescription("Delete a card"),
			mcp.WithString("id", mcp.Required()),
		), cardDelete),
		tool(mcp.NewTool("pim_card_search",
			mcp.WithDescription("Search card titles, content and tags"),
			mcp.WithString("query", mcp.Required()),
		), cardSearch),
		tool(mcp.NewTool("pim_card_link",
			mcp.WithDescription("Link two cards, or remove the link"),
			mcp.WithString("from", mcp.Required()),
			mcp.WithString("to", mcp.Required()),
			mcp.WithString("type", mcp.Description("Link type (default related)")),
			mcp.WithBoolean("remove"),
		), cardLink),
	}
}

func boxList(ctx context.Context, ec extension.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boxes, err := ec.Store().CardBoxes(ctx)
	mcpEvent("box_list", "box", "").Write(err)
	return cmd.ToolResult(boxes, err)
}

func boxCreate(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := ec.Store().CreateCardBox(ctx, store.NewCardBox{
		Name:        extension.String(req, "name", ""),
		Description: extension.OptString(req, "description"),
		Color:       extension.OptString(req, "color"),
		Icon:        extension.OptString(req, "icon"),
	})
	id := ""
	if b != nil {
		id = b.ID
	}
	mcpEvent("box_create", "box", id).Write(err)
	return cmd.ToolResult(b, err)
}

func cardList(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := store.CardFilter{
		BoxID:           extension.OptString(req, "box_id"),
		IncludeArchived: extension.Bool(req, "include_archived", false),
	}
	cards, err := ec.Store().Cards(ctx, f)
	mcpEvent("card_list", "box", extension.String(req, "box_id", "")).Write(err)
	return cmd.ToolResult(cards, err)
}

func cardGet(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	cd, err := ec.Store().Card(ctx, id)
	mcpEvent("card_get", "card", id).Write(err)
	return cmd.ToolResult(cd, err)
}

func cardCreate(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cd, err := ec.Store().CreateCard(ctx, store.NewCard{
		BoxID:   extension.String(req, "box_id", ""),
		Title:   extension.String(req, "title", ""),
		Content: extension.String(req, "content", ""),
		Color:   extension.OptString(req, "color"),
		Tags:    extension.Strings(req, "tags"),
	})
	id := ""
	if cd != nil {
		id = cd.ID
	}
	mcpEvent("card_create", "card", id).Write(err)
	return cmd.ToolResult(cd, err)
}

func cardUpdate(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	p := store.CardPatch{
		Title:      extension.OptString(req, "title"),
		Content:    extension.OptString(req, "content"),
		Color:      extension.OptString(req, "color"),
		IsPinned:   extension.OptBool(req, "pinned"),
		IsArchived: extension.OptBool(req, "archived"),
	}
	if tags := extension.Strings(req, "tags"); tags != nil {
		p.Tags = &tags
	}
	cd, err := ec.Store().UpdateCard(ctx, id, p)
	mcpEvent("card_update", "card", id).Write(err)
	return cmd.ToolResult(cd, err)
}

func cardMove(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, box := extension.String(req, "id", ""), extension.String(req, "box_id", "")
	cd, err := ec.Store().MoveCard(ctx, id, box)
	mcpEvent("card_move", "card", id).Detail("box", box).Write(err)
	return cmd.ToolResult(cd, err)
}

func cardDelete(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := extension.String(req, "id", "")
	err := ec.Store().DeleteCard(ctx, id)
	mcpEvent("card_delete", "card", id).Write(err)
	return cmd.ToolResult(map[string]string{"deleted": id}, err)
}

func cardSearch(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := extension.String(req, "query", "")
	cards, err := ec.Store().SearchCards(ctx, q)
	log.Event("mcp:cards", "card_search").Author("mcp").Detail("query", q).Detail("count", len(cards)).Write(err)
	return cmd.ToolResult(cards, err)
}

func cardLink(ctx context.Context, ec extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to := extension.String(req, "from", ""), extension.String(req, "to", "")
	if extension.Bool(req, "remove", false) {
		err := ec.Store().UnlinkCards(ctx, from, to)
		mcpEvent("card_unlink", "card", from).Detail("to", to).Write(err)
		return cmd.ToolResult(map[string]any{"from": from, "to": to, "removed": true}, err)
	}
	l, err := ec.Store().LinkCards(ctx, from, to, extension.String(req, "type", ""))
	mcpEvent("card_link", "card", from).Detail("to", to).Write(err)
	return cmd.ToolResult(l, err)
}
