package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forgeval/forgeval/internal/codehost"
	"github.com/forgeval/forgeval/internal/config"
	"github.com/forgeval/forgeval/internal/gitrepo"
	"github.com/forgeval/forgeval/internal/guard"
	"github.com/forgeval/forgeval/internal/tracker"
)

// Service wires the guard, the static record stores and the git adapter
// behind one tool catalog. The same Service instance backs both the MCP
// server and the inspection frontend.
type Service struct {
	cfg      *config.Config
	guard    *guard.Guard
	tracker  *tracker.Store
	host     *codehost.Store
	repo     *gitrepo.Repo
	Activity *ActivityLog
	readOnly bool
	tools    []string
}

// New loads the record stores and opens the bare repository adapter.
func New(cfg *config.Config) (*Service, error) {
	g := guard.New(cfg.RepoOwner, cfg.RepoName, cfg.HiddenBranches)

	hostStore, err := codehost.Load(cfg.GitHubDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load code host data: %w", err)
	}
	trackerStore, err := tracker.Load(cfg.LinearDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracker data: %w", err)
	}

	runner := &gitrepo.RealCommandRunner{Timeout: cfg.GitTimeout}
	repo := gitrepo.New(cfg.BareRepoPath, cfg.DefaultBranch, g, runner)

	return &Service{
		cfg:      cfg,
		guard:    g,
		tracker:  trackerStore,
		host:     hostStore,
		repo:     repo,
		Activity: &ActivityLog{},
		readOnly: cfg.ReadOnly,
	}, nil
}

// Reload re-reads both data directories, discarding runtime overlays. The
// activity log is kept.
func (s *Service) Reload() error {
	if err := s.host.Reload(s.cfg.GitHubDataDir); err != nil {
		return fmt.Errorf("failed to reload code host data: %w", err)
	}
	if err := s.tracker.Reload(s.cfg.LinearDataDir); err != nil {
		return fmt.Errorf("failed to reload tracker data: %w", err)
	}
	log.Printf("[Platform] Reloaded data from %s and %s", s.cfg.GitHubDataDir, s.cfg.LinearDataDir)
	return nil
}

// ReadOnly reports whether mutating tools are registered.
func (s *Service) ReadOnly() bool { return s.readOnly }

// Tracker exposes the issue tracker store to the inspection frontend.
func (s *Service) Tracker() *tracker.Store { return s.tracker }

// Host exposes the code host store to the inspection frontend.
func (s *Service) Host() *codehost.Store { return s.host }

// Tools lists the registered tool names in registration order.
func (s *Service) Tools() []string {
	out := make([]string, len(s.tools))
	copy(out, s.tools)
	return out
}

// Register adds the full tool catalog to an MCP server. Read-only tools
// are always present; mutating tools only outside read-only mode.
func (s *Service) Register(server *mcp.Server) {
	s.registerCodeHostTools(server)
	s.registerTrackerTools(server)
	log.Printf("[Platform] Registered %d tools (read-only=%v)", len(s.tools), s.readOnly)
}

// addTool registers one tool and records its name for the catalog listing.
func addTool[In any](s *Service, server *mcp.Server, name, description string,
	handler func(ctx context.Context, req *mcp.CallToolRequest, params In) (*mcp.CallToolResult, any, error)) {
	mcp.AddTool(server, &mcp.Tool{Name: name, Description: description}, handler)
	s.tools = append(s.tools, name)
}

// jsonResult serializes a value as the tool's text content.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// textResult returns raw text (file contents, diffs) as the tool output.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult reports a failed tool call to the agent. The error travels
// in the result payload, not the protocol error slot, so agents always see
// the stable code.
func errorResult(tool string, err error) (*mcp.CallToolResult, any, error) {
	code := errorCode(err)
	log.Printf("[Platform] %s failed (%s): %v", tool, code, err)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Error (%s): %v", code, err)},
		},
		IsError: true,
	}, nil, nil
}
