package agenda_tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mpawlik/gridcal/internal/agenda"
	"github.com/mpawlik/gridcal/internal/events"
	"github.com/mpawlik/gridcal/internal/instrumentation"
	"github.com/mpawlik/gridcal/internal/server"
	"github.com/mpawlik/gridcal/internal/session"
	"github.com/mpawlik/gridcal/internal/tools/common"
)

// RegisterAgendaTools registers all agenda-related tools with the MCP server
func RegisterAgendaTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// List tool (read-only, served from the local store without a remote call)
	listEventsTool := mcp.NewTool("agenda_list_events",
		mcp.WithDescription("List the upcoming events currently in the synced agenda"),
	)

	s.AddTool(listEventsTool, common.InstrumentedToolHandler("agenda_list_events", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	// Refresh tool
	refreshTool := mcp.NewTool("agenda_refresh",
		mcp.WithDescription("Refetch the upcoming events from the remote calendar"),
	)

	s.AddTool(refreshTool, common.InstrumentedToolHandlerWithOperation("agenda_refresh", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRefresh(ctx, request, sc)
		}))

	// Create event tool
	createEventTool := mcp.NewTool("agenda_create_event",
		mcp.WithDescription("Create a calendar event from a start/end slot; it appears in the agenda once the calendar confirmed it"),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Slot start (RFC3339 format, e.g., '2026-03-02T13:00:00Z')"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("Slot end (RFC3339 format, must be after start)"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Event title"),
		),
	)

	s.AddTool(createEventTool, common.InstrumentedToolHandlerWithOperation("agenda_create_event", instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))

	return nil
}

func handleListEvents(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if sc.Sessions().State() != session.StateSignedIn {
		return mcp.NewToolResultError("Not signed in. Call session_get_auth_url to start the sign-in flow."), nil
	}

	evs, revision := sc.Store().Snapshot()
	if len(evs) == 0 {
		return mcp.NewToolResultText("The agenda is empty."), nil
	}

	result := fmt.Sprintf("Agenda holds %d events (revision %d):\n\n", len(evs), revision)
	for i, event := range evs {
		result += fmt.Sprintf("%d. %s\n", i+1, event.Title)
		result += fmt.Sprintf("   ID: %s\n", event.ID)
		result += fmt.Sprintf("   Start: %s\n", event.Start.Format(time.RFC3339))
		result += fmt.Sprintf("   End: %s\n", event.End.Format(time.RFC3339))
		result += "\n"
	}

	return mcp.NewToolResultText(result), nil
}

func handleRefresh(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if err := sc.Controller().Refresh(ctx); err != nil {
		switch {
		case errors.Is(err, session.ErrNotSignedIn):
			return mcp.NewToolResultError("Not signed in. Call session_get_auth_url to start the sign-in flow."), nil
		case errors.Is(err, agenda.ErrFetchFailed):
			return mcp.NewToolResultError(fmt.Sprintf("Failed to refresh the agenda: %v. The previous agenda is still shown.", err)), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("Failed to refresh the agenda: %v", err)), nil
		}
	}

	return mcp.NewToolResultText(fmt.Sprintf("Agenda refreshed: %d upcoming events.", sc.Store().Len())), nil
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	slot, err := common.SlotFromArgs(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, ok := common.StringArg(args, "title")
	if !ok {
		return mcp.NewToolResultError("title is required"), nil
	}

	if err := sc.Controller().CreateFromSlot(ctx, slot, title); err != nil {
		switch {
		case errors.Is(err, events.ErrInvalidSlot):
			return mcp.NewToolResultError("Invalid slot: end must be after start."), nil
		case errors.Is(err, session.ErrNotSignedIn):
			return mcp.NewToolResultError("Not signed in. Call session_get_auth_url to start the sign-in flow."), nil
		case errors.Is(err, agenda.ErrCreateFailed):
			return mcp.NewToolResultError(fmt.Sprintf("The calendar rejected the event: %v. The agenda is unchanged.", err)), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create the event: %v", err)), nil
		}
	}

	return mcp.NewToolResultText(fmt.Sprintf("✅ Event created: %q from %s to %s.",
		title, slot.Start.Format(time.RFC3339), slot.End.Format(time.RFC3339))), nil
}
