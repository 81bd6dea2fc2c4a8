// Package mcpserver exposes the enrichment core as MCP tools, so an agent can
// enrich and pitch contacts without the HTTP surface.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dzhechko/B2BSalesAI/internal/crm"
	"github.com/dzhechko/B2BSalesAI/internal/model"
)

// Service is the subset of the caller layer the tools need.
type Service interface {
	CollectData(ctx context.Context, userID, contactID int64) (*model.Contact, error)
	GenerateRecommendations(ctx context.Context, userID, contactID int64, modelID string) ([]model.Recommendation, error)
	Sync(ctx context.Context, userID int64, source crm.Source) ([]model.Contact, error)
	Contact(ctx context.Context, userID, contactID int64) (*model.Contact, error)
	Contacts(ctx context.Context, userID int64) ([]model.Contact, error)
}

// Server wraps the MCP server. Every tool acts on behalf of one user.
type Server struct {
	MCPServer *mcp.Server

	svc    Service
	userID int64
}

// New registers the tools for userID.
func New(svc Service, userID int64, version string) *Server {
	s := &Server{
		MCPServer: mcp.NewServer(&mcp.Implementation{Name: "b2b-enrich", Version: version}, nil),
		svc:       svc,
		userID:    userID,
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	zap.L().Info("mcp: serving on stdio", zap.Int64("user_id", s.userID))
	return eris.Wrap(s.MCPServer.Run(ctx, &mcp.StdioTransport{}), "mcp: run")
}

func (s *Server) registerTools() {
	mcp.AddTool(s.MCPServer, &mcp.Tool{
		Name:        "list_contacts",
		Description: "List the user's contacts, most recently updated first.",
	}, s.handleListContacts)

	mcp.AddTool(s.MCPServer, &mcp.Tool{
		Name:        "get_contact",
		Description: "Get one contact with its collected data and recommendations.",
	}, s.handleGetContact)

	mcp.AddTool(s.MCPServer, &mcp.Tool{
		Name:        "collect_data",
		Description: "Run web research on the contact and its company. Replaces previously collected data.",
	}, s.handleCollectData)

	mcp.AddTool(s.MCPServer, &mcp.Tool{
		Name:        "generate_recommendations",
		Description: "Generate three tailored product recommendations from the collected data.",
	}, s.handleGenerateRecommendations)

	mcp.AddTool(s.MCPServer, &mcp.Tool{
		Name:        "sync_contacts",
		Description: "Import contacts from the CRM (amocrm or salesforce).",
	}, s.handleSyncContacts)
}

type listContactsInput struct{}

type contactInput struct {
	ContactID int64 `json:"contact_id" jsonschema:"local contact id"`
}

type recommendationsInput struct {
	ContactID int64  `json:"contact_id" jsonschema:"local contact id"`
	Model     string `json:"model,omitempty" jsonschema:"generation model id (default: server default)"`
}

type syncInput struct {
	Source string `json:"source,omitempty" jsonschema:"CRM to import from: amocrm (default) or salesforce"`
}

type contactsOutput struct {
	Contacts []model.Contact `json:"contacts"`
	Count    int             `json:"count"`
}

type recommendationsOutput struct {
	ContactID       int64                  `json:"contact_id"`
	Recommendations []model.Recommendation `json:"recommendations"`
}

func (s *Server) handleListContacts(ctx context.Context, _ *mcp.CallToolRequest, _ listContactsInput) (*mcp.CallToolResult, any, error) {
	contacts, err := s.svc.Contacts(ctx, s.userID)
	if err != nil {
		return nil, nil, err
	}
	return nil, contactsOutput{Contacts: contacts, Count: len(contacts)}, nil
}

func (s *Server) handleGetContact(ctx context.Context, _ *mcp.CallToolRequest, in contactInput) (*mcp.CallToolResult, any, error) {
	if in.ContactID <= 0 {
		return nil, nil, eris.New("contact_id is required")
	}
	c, err := s.svc.Contact(ctx, s.userID, in.ContactID)
	if err != nil {
		return nil, nil, err
	}
	return nil, c, nil
}

func (s *Server) handleCollectData(ctx context.Context, _ *mcp.CallToolRequest, in contactInput) (*mcp.CallToolResult, any, error) {
	if in.ContactID <= 0 {
		return nil, nil, eris.New("contact_id is required")
	}
	c, err := s.svc.CollectData(ctx, s.userID, in.ContactID)
	if err != nil {
		zap.L().Warn("mcp: collect_data failed", zap.Int64("contact_id", in.ContactID), zap.Error(err))
		return nil, nil, err
	}
	return nil, c, nil
}

func (s *Server) handleGenerateRecommendations(ctx context.Context, _ *mcp.CallToolRequest, in recommendationsInput) (*mcp.CallToolResult, any, error) {
	if in.ContactID <= 0 {
		return nil, nil, eris.New("contact_id is required")
	}
	recs, err := s.svc.GenerateRecommendations(ctx, s.userID, in.ContactID, in.Model)
	if err != nil {
		zap.L().Warn("mcp: generate_recommendations failed", zap.Int64("contact_id", in.ContactID), zap.Error(err))
		return nil, nil, err
	}
	return nil, recommendationsOutput{ContactID: in.ContactID, Recommendations: recs}, nil
}

func (s *Server) handleSyncContacts(ctx context.Context, _ *mcp.CallToolRequest, in syncInput) (*mcp.CallToolResult, any, error) {
	source, err := crm.ParseSource(in.Source)
	if err != nil {
		return nil, nil, err
	}
	contacts, err := s.svc.Sync(ctx, s.userID, source)
	if err != nil {
		return nil, nil, err
	}
	return nil, contactsOutput{Contacts: contacts, Count: len(contacts)}, nil
}
