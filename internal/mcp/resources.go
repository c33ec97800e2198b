// resources.go serves pages and cards as read-only MCP resources:
//
//	pim://pages/{id}               page content as markdown
//	pim://pages/{id}/v/{version}   a stored page version
//	pim://cards/{id}               card content

package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jpl-au/pim/extension"
	"github.com/jpl-au/pim/internal/format"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ErrInvalidURI indicates a malformed resource URI.
var ErrInvalidURI = errors.New("invalid URI")

const (
	pagePrefix = "pim://pages/"
	cardPrefix = "pim://cards/"
)

func registerResources(s *server.MCPServer, ec extension.Context) {
	read := func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return readResource(ctx, ec, req.Params.URI)
	}
	s.AddResourceTemplate(
		mcp.NewResourceTemplate(pagePrefix+"{id}", "Page",
			mcp.WithTemplateDescription("Page content as markdown"),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		read,
	)
	s.AddResourceTemplate(
		mcp.NewResourceTemplate(pagePrefix+"{id}/v/{version}", "Page Version",
			mcp.WithTemplateDescription("A stored version of a page"),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		read,
	)
	s.AddResourceTemplate(
		mcp.NewResourceTemplate(cardPrefix+"{id}", "Card",
			mcp.WithTemplateDescription("Card title and content"),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		read,
	)
}

func readResource(ctx context.Context, ec extension.Context, uri string) ([]mcp.ResourceContents, error) {
	text, err := resourceText(ctx, ec, uri)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "text/markdown", Text: text},
	}, nil
}

func resourceText(ctx context.Context, ec extension.Context, uri string) (string, error) {
	st := ec.Store()
	switch {
	case strings.HasPrefix(uri, pagePrefix):
		id, v, err := parsePageURI(uri)
		if err != nil {
			return "", err
		}
		p, err := st.Page(ctx, id, false)
		if err != nil {
			return "", err
		}
		if v > 0 {
			pv, err := st.PageVersion(ctx, id, v)
			if err != nil {
				return "", err
			}
			return format.PageMarkdown(p.Title, pv.Content), nil
		}
		content, err := st.PageContent(ctx, id)
		if err != nil {
			return "", err
		}
		return format.PageMarkdown(p.Title, content), nil

	case strings.HasPrefix(uri, cardPrefix):
		id := strings.TrimPrefix(uri, cardPrefix)
		if id == "" {
			return "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
		}
		c, err := st.Card(ctx, id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("# %s\n\n%s\n", c.Title, c.Content), nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
}

// parsePageURI splits pim://pages/{id}[/v/{version}].
func parsePageURI(uri string) (id string, version int, err error) {
	rest := strings.TrimPrefix(uri, pagePrefix)
	if id, v, ok := strings.Cut(rest, "/v/"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || id == "" {
			return "", 0, fmt.Errorf("%w: invalid version %q", ErrInvalidURI, v)
		}
		return id, n, nil
	}
	if rest == "" || strings.Contains(rest, "/") {
		return "", 0, fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	return rest, 0, nil
}
