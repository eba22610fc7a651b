package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mpawlik/gridcal/internal/server"
)

// RegisterAgendaResources registers the read-only agenda resources.
// These resources expose the synced agenda and the session state without
// triggering any remote calls.
func RegisterAgendaResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Register agenda events resource
	eventsResource := mcp.NewResource(
		"agenda://events",
		"Synced Agenda",
		mcp.WithResourceDescription("The upcoming events currently held in the local agenda store"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(eventsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleAgendaEvents(ctx, request, sc)
	})

	// Register session state resource
	sessionResource := mcp.NewResource(
		"agenda://session",
		"Calendar Session",
		mcp.WithResourceDescription("The calendar session state and the configured view window"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(sessionResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSessionState(ctx, request, sc)
	})

	return nil
}

// handleAgendaEvents returns the local agenda snapshot as JSON
func handleAgendaEvents(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	evs, revision := sc.Store().Snapshot()

	eventsData := map[string]interface{}{
		"revision": revision,
		"events":   evs,
	}

	jsonData, err := json.MarshalIndent(eventsData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal agenda data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// handleSessionState returns the session state and view configuration as JSON
func handleSessionState(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	cfg := sc.Config()

	sessionData := map[string]interface{}{
		"state":        sc.Sessions().State().String(),
		"calendar_id":  cfg.CalendarID,
		"time_zone":    cfg.TimeZone,
		"window_start": cfg.ViewWindowStart,
		"window_end":   cfg.ViewWindowEnd,
	}

	jsonData, err := json.MarshalIndent(sessionData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
