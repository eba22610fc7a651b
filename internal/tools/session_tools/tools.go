package session_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mpawlik/gridcal/internal/server"
	"github.com/mpawlik/gridcal/internal/session"
	"github.com/mpawlik/gridcal/internal/tools/common"
)

// RegisterSessionTools registers the session lifecycle tools with the MCP server
func RegisterSessionTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Session status tool
	statusTool := mcp.NewTool("session_status",
		mcp.WithDescription("Show the current calendar session state and the size of the synced agenda"),
	)

	s.AddTool(statusTool, common.InstrumentedToolHandler("session_status", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleStatus(ctx, request, sc)
		}))

	// Get OAuth URL tool
	getAuthURLTool := mcp.NewTool("session_get_auth_url",
		mcp.WithDescription("Get the OAuth URL to authorize read/write access to the calendar"),
	)

	s.AddTool(getAuthURLTool, common.InstrumentedToolHandler("session_get_auth_url", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAuthURL(ctx, request, sc)
		}))

	// Sign-in tool, the second half of the auth-url pair
	signInTool := mcp.NewTool("session_sign_in",
		mcp.WithDescription("Complete calendar sign-in with the authorization code from the consent page"),
		mcp.WithString("authCode",
			mcp.Required(),
			mcp.Description("The authorization code displayed after approving access"),
		),
	)

	s.AddTool(signInTool, common.InstrumentedToolHandler("session_sign_in", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSignIn(ctx, request, sc)
		}))

	// Sign-out tool
	signOutTool := mcp.NewTool("session_sign_out",
		mcp.WithDescription("Sign out from the calendar provider and clear the synced agenda"),
	)

	s.AddTool(signOutTool, common.InstrumentedToolHandler("session_sign_out", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSignOut(ctx, request, sc)
		}))

	return nil
}

func handleStatus(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	state := sc.Sessions().State()

	result := fmt.Sprintf("Session: %s\n", state)
	if state == session.StateSignedIn {
		result += fmt.Sprintf("Agenda: %d events (revision %d)\n", sc.Store().Len(), sc.Store().Revision())
	}

	return mcp.NewToolResultText(result), nil
}

func handleGetAuthURL(_ context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	authURL, err := sc.Sessions().AuthURL()
	if err != nil {
		if errors.Is(err, session.ErrNotReady) {
			return mcp.NewToolResultError("The session manager has not finished initializing yet. Try again in a moment."), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to build the authorization URL: %v", err)), nil
	}

	result := fmt.Sprintf(`To authorize calendar access:

1. Visit this URL in your browser:
   %s

2. Sign in and grant access to your calendar
3. Copy the authorization code

4. Call the session_sign_in tool with the code to complete authentication`, authURL)

	return mcp.NewToolResultText(result), nil
}

func handleSignIn(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	authCode, ok := common.StringArg(request.GetArguments(), "authCode")
	if !ok {
		return mcp.NewToolResultError("authCode is required"), nil
	}

	if err := sc.Sessions().SignInWithCode(ctx, authCode); err != nil {
		switch {
		case errors.Is(err, session.ErrNotReady):
			return mcp.NewToolResultError("The session manager has not finished initializing yet. Try again in a moment."), nil
		case errors.Is(err, session.ErrDeclined):
			return mcp.NewToolResultError("Sign-in was declined."), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("Failed to sign in: %v", err)), nil
		}
	}

	// The sign-in transition already triggered the initial fetch, so the
	// store reflects the session's agenda by now.
	return mcp.NewToolResultText(fmt.Sprintf("✅ Signed in. The agenda now holds %d upcoming events.", sc.Store().Len())), nil
}

func handleSignOut(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if err := sc.Sessions().SignOut(ctx); err != nil {
		if errors.Is(err, session.ErrNotReady) {
			return mcp.NewToolResultError("The session manager has not finished initializing yet."), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to sign out: %v", err)), nil
	}

	return mcp.NewToolResultText("Signed out. The local agenda has been cleared."), nil
}
