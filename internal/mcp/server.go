package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mfenderov/ragchat/internal/access"
	"github.com/mfenderov/ragchat/internal/apierr"
	"github.com/mfenderov/ragchat/internal/reference"
	"github.com/mfenderov/ragchat/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Locator reference.Locator
}

// Authenticator resolves a bearer header into an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (models.Identity, error)
}

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, id models.Identity, req models.ChatRequest) (*models.ChatResponse, error)
}

// Lister lists a caller's documents.
type Lister interface {
	List(ctx context.Context, id models.Identity) ([]models.DocumentInfo, error)
}

// Reader fetches an indexed document by storage key.
type Reader interface {
	GetDocument(ctx context.Context, key string) (*models.Document, error)
}

// Server exposes the question-answering pipeline as MCP tools. Every tool
// takes the caller's session token and acts only within their scope.
type Server struct {
	mcpServer *server.MCPServer
	config    Config
	auth      Authenticator
	asker     Asker
	lister    Lister
	reader    Reader
}

// NewServer creates a new MCP server with document tools. reader may be
// nil when no search index is configured.
func NewServer(config Config, auth Authenticator, asker Asker, lister Lister, reader Reader) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		config:    config,
		auth:      auth,
		asker:     asker,
		lister:    lister,
		reader:    reader,
	}

	askTool := mcp.NewTool("ask_documents",
		mcp.WithDescription("Answer a question from the caller's uploaded documents. Returns the answer with the excerpts it was grounded on."),
		mcp.WithString("token",
			mcp.Required(),
			mcp.Description("Session token from login"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The question"),
		),
		mcp.WithString("target_document_id",
			mcp.Description("Restrict the answer to one document (storage key or s3 uri)"),
		),
		mcp.WithString("target_document_name",
			mcp.Description("Display name of the target document"),
		),
	)
	mcpServer.AddTool(askTool, s.askHandler)

	listTool := mcp.NewTool("list_documents",
		mcp.WithDescription("List the caller's uploaded documents, newest first"),
		mcp.WithString("token",
			mcp.Required(),
			mcp.Description("Session token from login"),
		),
	)
	mcpServer.AddTool(listTool, s.listHandler)

	getDocTool := mcp.NewTool("get_document",
		mcp.WithDescription("Get the indexed text of one of the caller's documents"),
		mcp.WithString("token",
			mcp.Required(),
			mcp.Description("Session token from login"),
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Storage key or s3 uri of the document"),
		),
	)
	mcpServer.AddTool(getDocTool, s.getDocumentHandler)

	return s
}

func (s *Server) askHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, failed := s.identify(ctx, req)
	if failed != nil {
		return failed, nil
	}

	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message parameter is required"), nil
	}

	resp, err := s.asker.Ask(ctx, id, models.ChatRequest{
		Message:            message,
		TargetDocumentID:   req.GetString("target_document_id", ""),
		TargetDocumentName: req.GetString("target_document_name", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(apierr.PublicMessage(err)), nil
	}
	return jsonResult(resp)
}

func (s *Server) listHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, failed := s.identify(ctx, req)
	if failed != nil {
		return failed, nil
	}

	docs, err := s.lister.List(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(apierr.PublicMessage(err)), nil
	}
	return jsonResult(docs)
}

func (s *Server) getDocumentHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, failed := s.identify(ctx, req)
	if failed != nil {
		return failed, nil
	}

	ref, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	if !access.ScopeFor(id).Owns(s.config.Locator, ref) {
		return mcp.NewToolResultError("You are not allowed to access this document"), nil
	}

	if s.reader == nil {
		return mcp.NewToolResultError("Search index is not configured"), nil
	}

	doc, err := s.reader.GetDocument(ctx, s.config.Locator.Key(ref))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get document failed: %v", err)), nil
	}
	if doc == nil {
		return mcp.NewToolResultError(fmt.Sprintf("document not found: %s", ref)), nil
	}
	return jsonResult(doc)
}

// identify resolves the token argument. A non-nil result is the error to
// hand back to the client.
func (s *Server) identify(ctx context.Context, req mcp.CallToolRequest) (models.Identity, *mcp.CallToolResult) {
	token, err := req.RequireString("token")
	if err != nil || token == "" {
		return models.Identity{}, mcp.NewToolResultError("Authorization token missing")
	}
	id, err := s.auth.Authenticate(ctx, "Bearer "+token)
	if err != nil {
		return models.Identity{}, mcp.NewToolResultError(apierr.PublicMessage(err))
	}
	return id, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	result, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
