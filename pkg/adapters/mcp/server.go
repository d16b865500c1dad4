package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kharven/refract"
	"github.com/kharven/refract/pkg/domain"
)

// ExamSummary aligns with the OpenAPI session schema so agents see one shape
// across adapters.
type ExamSummary struct {
	SessionID   string               `json:"session_id" jsonschema_description:"The exam session identifier"`
	Status      domain.ExamStatus    `json:"status" jsonschema_description:"Controller lifecycle state: active, finalized, or halted"`
	CurrentStep domain.StepID        `json:"current_step" jsonschema_description:"The active protocol step"`
	Command     domain.DeviceCommand `json:"command" jsonschema_description:"The presentation command for the current step"`
}

// TurnOutcome is the structured result of one submitted response.
type TurnOutcome struct {
	SessionID string             `json:"session_id" jsonschema_description:"The exam session identifier"`
	Result    *domain.TurnResult `json:"result" jsonschema_description:"Device command, step transition, verdict, adjustments, and any escalation"`
}

// Exam defines the engine surface required by the MCP server. The root
// refract.Engine satisfies it.
type Exam interface {
	Begin(ctx context.Context, sessionID string) (*domain.ExamState, domain.DeviceCommand, error)
	Submit(ctx context.Context, sessionID string, resp *domain.ClassifiedResponse) (*domain.TurnResult, error)
	Halt(ctx context.Context, sessionID string, reason domain.EscalationReason) (*domain.Escalation, error)
	Report(ctx context.Context, sessionID string) (*domain.ExamReport, error)
	Sessions(ctx context.Context) ([]string, error)
	Protocol() *domain.Protocol
}

// Server wraps the exam engine and exposes it as an MCP server.
type Server struct {
	exam      Exam
	mcpServer *server.MCPServer
}

// shutdownGrace bounds how long a terminating SSE server waits for in-flight
// requests.
const shutdownGrace = 5 * time.Second

// NewServer builds the MCP server and registers the exam tools and the
// protocol resource.
func NewServer(exam Exam) *Server {
	s := &Server{
		exam:      exam,
		mcpServer: server.NewMCPServer("refract-mcp", strings.TrimSpace(refract.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves MCP over stdin and stdout, blocking until input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over HTTP server-sent events on the given port until
// ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("MCP SSE server listening", "address", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		slog.Info("MCP SSE server shutting down")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown mcp sse server: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("mcp request", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: begin_exam
	beginTool := mcp.NewTool("begin_exam",
		mcp.WithDescription("Begin a new exam session, or resume an existing one. Returns the current step and its presentation command."),
		mcp.WithString("session_id", mcp.Description("Session identifier (optional; a UUID is generated when omitted)")),
		mcp.WithOutputSchema[ExamSummary](),
	)
	s.mcpServer.AddTool(beginTool, mcp.NewStructuredToolHandler(s.handleBeginExam))

	// TOOL: submit_response
	submitTool := mcp.NewTool("submit_response",
		mcp.WithDescription("Submit one classified patient response for the session's current step. The engine validates, gates, adjusts, and advances (or escalates)."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("intent", mcp.Required(), mcp.Description("Classified intent tag, e.g. refraction_feedback")),
		mcp.WithNumber("confidence", mcp.Required(), mcp.Description("Classifier confidence in [0,1]")),
		mcp.WithString("slots", mcp.Description("JSON object of extracted slots, e.g. {\"clarity_feedback\":\"first_better\"}")),
		mcp.WithString("sentiment", mcp.Description("Classified sentiment tag (optional)")),
		mcp.WithBoolean("red_flag", mcp.Description("True if the utterance matched an emergency keyword")),
		mcp.WithBoolean("persona_override", mcp.Description("True if the utterance tried to redirect the system's clinical role")),
		mcp.WithNumber("elapsed_seconds", mcp.Description("Session clock at submission, in seconds")),
		mcp.WithNumber("hesitation_seconds", mcp.Description("Pause before the patient answered, in seconds")),
		mcp.WithOutputSchema[TurnOutcome](),
	)
	s.mcpServer.AddTool(submitTool, mcp.NewStructuredToolHandler(s.handleSubmitResponse))

	// TOOL: escalate_exam
	escalateTool := mcp.NewTool("escalate_exam",
		mcp.WithDescription("Halt the session. Idempotent; defaults to an external abort."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("reason", mcp.Description("red_flag, duration_exceeded, or external_abort (default)")),
		mcp.WithOutputSchema[domain.Escalation](),
	)
	s.mcpServer.AddTool(escalateTool, mcp.NewStructuredToolHandler(s.handleEscalateExam))

	// TOOL: get_report
	reportTool := mcp.NewTool("get_report",
		mcp.WithDescription("Produce the exam report: final prescriptions, adjustment history, quality grade, and safety summary."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithOutputSchema[domain.ExamReport](),
	)
	s.mcpServer.AddTool(reportTool, mcp.NewStructuredToolHandler(s.handleGetReport))

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the IDs of all stored exam sessions."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessions, err := s.exam.Sessions(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(sessions)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Structured tool handlers. Each returns a typed result that mcp-go renders
// as structured content alongside the text fallback.

func (s *Server) handleBeginExam(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ExamSummary, error) {
	sessionID, _ := args["session_id"].(string)

	state, cmd, err := s.exam.Begin(ctx, sessionID)
	if err != nil {
		return ExamSummary{}, fmt.Errorf("begin failed: %w", err)
	}

	return ExamSummary{
		SessionID:   state.SessionID,
		Status:      state.Status,
		CurrentStep: state.CurrentStep,
		Command:     cmd,
	}, nil
}

func (s *Server) handleSubmitResponse(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnOutcome, error) {
	sessionID, _ := args["session_id"].(string)
	intent, _ := args["intent"].(string)
	confidence, _ := args["confidence"].(float64)

	resp := &domain.ClassifiedResponse{
		Intent:     domain.Intent(intent),
		Confidence: confidence,
	}

	if slotsStr, ok := args["slots"].(string); ok && slotsStr != "" {
		if err := json.Unmarshal([]byte(slotsStr), &resp.Slots); err != nil {
			return TurnOutcome{}, fmt.Errorf("slots must be a JSON object of strings: %w", err)
		}
	}
	if sentiment, ok := args["sentiment"].(string); ok {
		resp.Sentiment = domain.Sentiment(sentiment)
	}
	if redFlag, ok := args["red_flag"].(bool); ok {
		resp.RedFlag = redFlag
	}
	if override, ok := args["persona_override"].(bool); ok {
		resp.PersonaOverride = override
	}
	if elapsed, ok := args["elapsed_seconds"].(float64); ok {
		resp.ElapsedSeconds = elapsed
	}
	if hesitation, ok := args["hesitation_seconds"].(float64); ok {
		resp.HesitationSeconds = hesitation
	}

	if err := resp.Validate(); err != nil {
		return TurnOutcome{}, err
	}

	result, err := s.exam.Submit(ctx, sessionID, resp)
	if err != nil {
		return TurnOutcome{}, fmt.Errorf("submit failed: %w", err)
	}

	return TurnOutcome{
		SessionID: sessionID,
		Result:    result,
	}, nil
}

func (s *Server) handleEscalateExam(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Escalation, error) {
	sessionID, _ := args["session_id"].(string)

	reason := domain.EscalationExternal
	if r, ok := args["reason"].(string); ok && r != "" {
		switch domain.EscalationReason(r) {
		case domain.EscalationRedFlag, domain.EscalationDurationExceeded, domain.EscalationExternal:
			reason = domain.EscalationReason(r)
		default:
			return domain.Escalation{}, fmt.Errorf("unknown escalation reason %q", r)
		}
	}

	esc, err := s.exam.Halt(ctx, sessionID, reason)
	if err != nil {
		return domain.Escalation{}, fmt.Errorf("escalate failed: %w", err)
	}
	return *esc, nil
}

func (s *Server) handleGetReport(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.ExamReport, error) {
	sessionID, _ := args["session_id"].(string)

	report, err := s.exam.Report(ctx, sessionID)
	if err != nil {
		return domain.ExamReport{}, fmt.Errorf("report failed: %w", err)
	}
	return *report, nil
}

func (s *Server) registerResources() {
	// EXPOSE: refract://protocol
	s.mcpServer.AddResource(mcp.NewResource("refract://protocol", "Exam Protocol Step Table",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p := s.exam.Protocol()

		steps := make([]*domain.ProtocolStep, 0, len(p.Steps))
		for _, step := range p.Steps {
			steps = append(steps, step)
		}
		payload := map[string]any{
			"start": p.Start,
			"steps": steps,
		}
		jsonBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal protocol: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "refract://protocol",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
