package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"

	"github.com/kharven/refract"
	"github.com/kharven/refract/api"
	"github.com/kharven/refract/pkg/domain"
)

// Exam defines the engine surface the HTTP adapter drives. The root
// refract.Engine satisfies it.
type Exam interface {
	Begin(ctx context.Context, sessionID string) (*domain.ExamState, domain.DeviceCommand, error)
	Submit(ctx context.Context, sessionID string, resp *domain.ClassifiedResponse) (*domain.TurnResult, error)
	Halt(ctx context.Context, sessionID string, reason domain.EscalationReason) (*domain.Escalation, error)
	State(ctx context.Context, sessionID string) (*domain.ExamState, error)
	Report(ctx context.Context, sessionID string) (*domain.ExamReport, error)
	End(ctx context.Context, sessionID string) error
	Sessions(ctx context.Context) ([]string, error)
}

// Server exposes exam sessions over REST plus an SSE event stream.
type Server struct {
	Exam    Exam
	Streams *StreamManager
	doc     *openapi3.T
}

// NewHandler creates the HTTP handler for the exam engine. The embedded
// OpenAPI contract is validated here so a broken spec fails startup.
func NewHandler(exam Exam) (http.Handler, error) {
	doc, err := api.Document(context.Background())
	if err != nil {
		return nil, err
	}

	server := &Server{
		Exam:    exam,
		Streams: NewStreamManager(),
		doc:     doc,
	}
	r := chi.NewRouter()

	// Contract + Swagger UI
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(api.Spec())
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/events", server.SubscribeEvents)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", server.CreateSession)
		r.Get("/", server.ListSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", server.GetSession)
			r.Delete("/", server.DeleteSession)
			r.Post("/turns", server.SubmitTurn)
			r.Post("/escalate", server.EscalateSession)
			r.Get("/report", server.GetReport)
		})
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Refract API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

type createSessionRequest struct {
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	SessionID   string               `json:"session_id"`
	Status      domain.ExamStatus    `json:"status"`
	CurrentStep domain.StepID        `json:"current_step"`
	Command     domain.DeviceCommand `json:"command"`
}

type escalateRequest struct {
	Reason domain.EscalationReason `json:"reason"`
}

// CreateSession handles POST /sessions. An empty body or empty session_id
// lets the engine mint a UUID.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			slog.Warn("CreateSession: Invalid request body", "err", err)
			return
		}
	}

	state, cmd, err := s.Exam.Begin(r.Context(), body.SessionID)
	if err != nil {
		s.writeError(w, "CreateSession", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, sessionResponse{
		SessionID:   state.SessionID,
		Status:      state.Status,
		CurrentStep: state.CurrentStep,
		Command:     cmd,
	})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.Exam.Sessions(r.Context())
	if err != nil {
		s.writeError(w, "ListSessions", err)
		return
	}
	if sessions == nil {
		sessions = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string][]string{"sessions": sessions})
}

// GetSession handles GET /sessions/{sessionID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.Exam.State(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, "GetSession", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, state)
}

// DeleteSession handles DELETE /sessions/{sessionID}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Exam.End(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitTurn handles POST /sessions/{sessionID}/turns. The body is one
// classified patient response; validation failures are the client's fault
// and come back as 400.
func (s *Server) SubmitTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var resp domain.ClassifiedResponse
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("SubmitTurn: Invalid request body", "err", err)
		return
	}
	if err := resp.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("Invalid response: %v", err), http.StatusBadRequest)
		slog.Warn("SubmitTurn: Response rejected", "session_id", sessionID, "err", err)
		return
	}

	result, err := s.Exam.Submit(r.Context(), sessionID, &resp)
	if err != nil {
		s.writeError(w, "SubmitTurn", err)
		return
	}

	s.broadcast(sessionID, "turn", result)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// EscalateSession handles POST /sessions/{sessionID}/escalate. With no body
// the reason defaults to external_abort.
func (s *Server) EscalateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	body := escalateRequest{Reason: domain.EscalationExternal}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			slog.Warn("EscalateSession: Invalid request body", "err", err)
			return
		}
	}
	switch body.Reason {
	case domain.EscalationRedFlag, domain.EscalationDurationExceeded, domain.EscalationExternal:
	case "":
		body.Reason = domain.EscalationExternal
	default:
		http.Error(w, fmt.Sprintf("Unknown escalation reason %q", body.Reason), http.StatusBadRequest)
		return
	}

	esc, err := s.Exam.Halt(r.Context(), sessionID, body.Reason)
	if err != nil {
		s.writeError(w, "EscalateSession", err)
		return
	}

	s.broadcast(sessionID, "escalation", esc)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, esc)
}

// GetReport handles GET /sessions/{sessionID}/report.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.Exam.Report(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, "GetReport", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, report)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetInfo handles GET /info: the release version plus the version of the
// embedded API contract.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.doc != nil && s.doc.Info != nil {
		apiVersion = s.doc.Info.Version
	}

	resp := map[string]string{
		"app":         "refract-http",
		"version":     strings.TrimSpace(refract.Version),
		"api_version": apiVersion,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError maps engine errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	var transition *domain.InvalidTransitionError

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, "Session not found", http.StatusNotFound)
	case errors.As(err, &transition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, fmt.Sprintf("%s error: %v", op, err), http.StatusInternalServerError)
		slog.Error(op+" failed", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}

// event is the envelope broadcast to SSE subscribers.
type event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Data      any    `json:"data"`
}

func (s *Server) broadcast(sessionID, typ string, data any) {
	bytes, err := json.Marshal(event{Type: typ, SessionID: sessionID, Data: data})
	if err != nil {
		slog.Error("Event marshal failed", "session_id", sessionID, "err", err)
		return
	}
	s.Streams.Broadcast(sessionID, string(bytes))
}

// subscriberBuffer is how many pending events a subscriber may lag behind
// before Broadcast starts dropping its events.
const subscriberBuffer = 16

// StreamManager fans session events out to live SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // keyed by session ID
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a listener for one session's events. The returned
// cancel func unregisters it and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, subscriberBuffer)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Broadcast delivers one event to every subscriber of the session. It never
// blocks on a lagging subscriber; their event is dropped instead.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if subs, ok := sm.subscribers[sessionID]; ok {
		for ch := range subs {
			select {
			case ch <- msg:
			default:
				slog.Warn("Broadcast: subscriber lagging, event dropped", "session_id", sessionID)
			}
		}
	}
}

// SubscribeEvents handles GET /events: a server-sent event stream of turn and
// escalation events for one session. The optional watch parameter narrows the
// stream to a comma-separated list of event types.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		slog.Error("SubscribeEvents: response writer cannot stream")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id query parameter is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	slog.Info("SubscribeEvents: client connected", "session_id", sessionID)

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	// Parse 'watch' filter: comma-separated event types to keep.
	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	for {
		select {
		case <-r.Context().Done():
			slog.Info("SubscribeEvents: client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 {
				var ev event
				if err := json.Unmarshal([]byte(msg), &ev); err == nil {
					keep := false
					for _, typ := range watchList {
						if strings.TrimSpace(typ) == ev.Type {
							keep = true
							break
						}
					}
					if !keep {
						continue
					}
				}
			}

			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func init() {
	// Handlers log through the process-default slog, as JSON on stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)
}
