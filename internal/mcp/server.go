// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the workflow engine to AI coding assistants: proposing new tasks for
// injection, starting and completing tasks, and inspecting workflow status.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sdd-tools/specflow/internal/core"
	"github.com/sdd-tools/specflow/pkg/models"
)

// Server wraps the workflow engine and exposes it as MCP tools.
type Server struct {
	server *gomcp.Server
	engine *core.Engine
}

// NewServer creates a new MCP server around the given engine.
func NewServer(engine *core.Engine, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{engine: engine}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "specflow", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type proposalInput struct {
	ID                 string   `json:"id" jsonschema:"required,unique identifier for the proposed task"`
	Title              string   `json:"title" jsonschema:"required,short task title"`
	Details            string   `json:"details" jsonschema:"required,what the task implements"`
	AcceptanceCriteria string   `json:"acceptance_criteria" jsonschema:"required,how completion is judged"`
	Files              []string `json:"files" jsonschema:"required,files the task is expected to touch"`
	ParentIndex        *int     `json:"parent_index,omitempty" jsonschema:"step index of the existing task this elaborates on"`
	Reason             string   `json:"reason,omitempty" jsonschema:"why the task is being proposed"`
	Trigger            string   `json:"trigger,omitempty" jsonschema:"what prompted the proposal"`
}

type proposeTaskInput struct {
	SpecID   string        `json:"spec_id" jsonschema:"required,the target specification id"`
	Proposal proposalInput `json:"proposal" jsonschema:"required,the proposed task"`
}

type proposeTasksInput struct {
	SpecID    string          `json:"spec_id" jsonschema:"required,the target specification id"`
	Proposals []proposalInput `json:"proposals" jsonschema:"required,the proposed tasks"`
}

type injectionResult struct {
	Accepted  bool   `json:"accepted"`
	StepIndex int    `json:"step_index,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}

type proposeTasksOutput struct {
	Results  []injectionResult `json:"results"`
	Accepted int               `json:"accepted"`
	Rejected int               `json:"rejected"`
}

type taskRefInput struct {
	SpecID string `json:"spec_id" jsonschema:"required,the specification id"`
	Index  int    `json:"index" jsonschema:"required,the task step index"`
}

type startTaskInput struct {
	SpecID   string `json:"spec_id" jsonschema:"required,the specification id"`
	Index    int    `json:"index" jsonschema:"required,the task step index"`
	Override string `json:"override,omitempty" jsonschema:"justification for starting out of sequence"`
}

type completeTaskInput struct {
	SpecID string `json:"spec_id" jsonschema:"required,the specification id"`
	Index  int    `json:"index" jsonschema:"required,the task step index"`
	Notes  string `json:"notes,omitempty" jsonschema:"completion notes"`
	Merge  bool   `json:"merge,omitempty" jsonschema:"merge the task's feature branch"`
}

type resultOutput struct {
	SpecID     string   `json:"spec_id"`
	Index      int      `json:"index"`
	TaskStatus string   `json:"task_status"`
	Branch     string   `json:"branch,omitempty"`
	Merged     bool     `json:"merged,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

type statusInput struct {
	SpecID string `json:"spec_id" jsonschema:"required,the specification id"`
}

type statusTask struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Injected bool   `json:"injected,omitempty"`
	Branch   string `json:"branch,omitempty"`
}

type statusOutput struct {
	SpecID    string       `json:"spec_id"`
	Status    string       `json:"status"`
	Tasks     []statusTask `json:"tasks"`
	Done      int          `json:"done"`
	Total     int          `json:"total"`
	Injected  int          `json:"injected"`
	TakenAt   string       `json:"taken_at"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "propose_task",
		Description: "Propose a new task for runtime injection into a specification. The proposal is validated (unique id, valid parent index, no spec cycles, required fields) before the task graph is touched.",
	}, s.handleProposeTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "propose_tasks",
		Description: "Propose a batch of tasks for injection. Proposals are validated independently; accepted ones are committed together with contiguous indices.",
	}, s.handleProposeTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "start_task",
		Description: "Start a pending task. Strict sequencing applies unless an override justification is given.",
	}, s.handleStartTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Complete an in-progress task, optionally merging its feature branch.",
	}, s.handleCompleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_workflow_status",
		Description: "Get a consistent snapshot of a specification: workflow status, per-task statuses, branches, and injection provenance counts.",
	}, s.handleStatus)
}

// --- Tool handlers ---

func (s *Server) handleProposeTask(_ context.Context, _ *gomcp.CallToolRequest, input proposeTaskInput) (*gomcp.CallToolResult, injectionResult, error) {
	if input.SpecID == "" {
		return errorResult("spec_id is required"), injectionResult{}, nil
	}
	outcome, err := s.engine.InjectTask(input.SpecID, toProposal(input.Proposal))
	if err != nil {
		return errorResult(fmt.Sprintf("injecting into %s: %s", input.SpecID, err)), injectionResult{}, nil
	}
	return nil, toInjectionResult(outcome), nil
}

func (s *Server) handleProposeTasks(_ context.Context, _ *gomcp.CallToolRequest, input proposeTasksInput) (*gomcp.CallToolResult, proposeTasksOutput, error) {
	if input.SpecID == "" {
		return errorResult("spec_id is required"), proposeTasksOutput{}, nil
	}
	proposals := make([]models.TaskProposal, len(input.Proposals))
	for i, p := range input.Proposals {
		proposals[i] = toProposal(p)
	}
	outcomes, err := s.engine.InjectTasks(input.SpecID, proposals)
	if err != nil {
		return errorResult(fmt.Sprintf("injecting into %s: %s", input.SpecID, err)), proposeTasksOutput{}, nil
	}

	out := proposeTasksOutput{Results: make([]injectionResult, len(outcomes))}
	for i, o := range outcomes {
		out.Results[i] = toInjectionResult(o)
		if out.Results[i].Accepted {
			out.Accepted++
		} else {
			out.Rejected++
		}
	}
	return nil, out, nil
}

func (s *Server) handleStartTask(ctx context.Context, _ *gomcp.CallToolRequest, input startTaskInput) (*gomcp.CallToolResult, resultOutput, error) {
	if input.SpecID == "" {
		return errorResult("spec_id is required"), resultOutput{}, nil
	}
	res, err := s.engine.StartTask(ctx, input.SpecID, input.Index, input.Override)
	if err != nil {
		return errorResult(fmt.Sprintf("starting %s[%d]: %s", input.SpecID, input.Index, err)), resultOutput{}, nil
	}
	return nil, toResultOutput(res), nil
}

func (s *Server) handleCompleteTask(ctx context.Context, _ *gomcp.CallToolRequest, input completeTaskInput) (*gomcp.CallToolResult, resultOutput, error) {
	if input.SpecID == "" {
		return errorResult("spec_id is required"), resultOutput{}, nil
	}
	res, err := s.engine.CompleteTask(ctx, input.SpecID, input.Index, input.Notes, input.Merge, false)
	if err != nil {
		return errorResult(fmt.Sprintf("completing %s[%d]: %s", input.SpecID, input.Index, err)), resultOutput{}, nil
	}
	return nil, toResultOutput(res), nil
}

func (s *Server) handleStatus(_ context.Context, _ *gomcp.CallToolRequest, input statusInput) (*gomcp.CallToolResult, statusOutput, error) {
	if input.SpecID == "" {
		return errorResult("spec_id is required"), statusOutput{}, nil
	}
	snap, err := s.engine.GetWorkflowStatus(input.SpecID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting status of %s: %s", input.SpecID, err)), statusOutput{}, nil
	}

	out := statusOutput{
		SpecID:   snap.SpecID,
		Status:   string(snap.Status),
		Done:     snap.DoneTasks,
		Total:    snap.TotalTasks,
		Injected: snap.InjectedTasks,
		TakenAt:  snap.Taken.Format(time.RFC3339),
		Tasks:    make([]statusTask, len(snap.Tasks)),
	}
	for i, t := range snap.Tasks {
		out.Tasks[i] = statusTask{
			Index:    t.StepIndex,
			ID:       t.ID,
			Title:    t.Title,
			Status:   string(t.Status),
			Injected: t.Injected,
			Branch:   t.Branch,
		}
	}
	return nil, out, nil
}

// --- Helpers ---

// toProposal converts MCP input to a model proposal. Everything arriving on
// this surface is AI-originated by definition.
func toProposal(p proposalInput) models.TaskProposal {
	return models.TaskProposal{
		ID:                 p.ID,
		Title:              p.Title,
		Details:            p.Details,
		AcceptanceCriteria: p.AcceptanceCriteria,
		Files:              p.Files,
		ParentIndex:        p.ParentIndex,
		Source:             models.SourceAI,
		Actor:              "mcp-client",
		Reason:             p.Reason,
		Trigger:            p.Trigger,
	}
}

func toInjectionResult(o core.InjectionOutcome) injectionResult {
	if o.Rejection != nil {
		return injectionResult{
			Reason:  string(o.Rejection.Reason),
			Message: o.Rejection.Message,
		}
	}
	return injectionResult{Accepted: true, StepIndex: o.Task.StepIndex}
}

func toResultOutput(res *models.Result) resultOutput {
	out := resultOutput{
		SpecID:     res.SpecID,
		Index:      res.TaskIndex,
		TaskStatus: string(res.TaskStatus),
		Branch:     res.Branch,
		Merged:     res.Merged,
	}
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
