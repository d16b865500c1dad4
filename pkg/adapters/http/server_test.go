package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kharven/refract/pkg/domain"
)

// MockExam for testing
type MockExam struct {
	SubmitFunc func(ctx context.Context, sessionID string, resp *domain.ClassifiedResponse) (*domain.TurnResult, error)
	StateFunc  func(ctx context.Context, sessionID string) (*domain.ExamState, error)
}

func (m *MockExam) Begin(ctx context.Context, sessionID string) (*domain.ExamState, domain.DeviceCommand, error) {
	if sessionID == "" {
		sessionID = "generated-id"
	}
	state := domain.NewExamState(sessionID, "0.1")
	return state, domain.DeviceCommand{Kind: domain.CommandNoAction, QuestionKey: "greeting"}, nil
}

func (m *MockExam) Submit(ctx context.Context, sessionID string, resp *domain.ClassifiedResponse) (*domain.TurnResult, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, sessionID, resp)
	}
	return &domain.TurnResult{
		Command:  domain.DeviceCommand{Kind: domain.CommandNoAction},
		NextStep: "0.2",
		Verdict:  domain.ResponseVerdict{Kind: domain.VerdictClear, Confidence: resp.Confidence},
	}, nil
}

func (m *MockExam) Halt(ctx context.Context, sessionID string, reason domain.EscalationReason) (*domain.Escalation, error) {
	return &domain.Escalation{Reason: reason, Step: "0.1", At: time.Now().UTC()}, nil
}

func (m *MockExam) State(ctx context.Context, sessionID string) (*domain.ExamState, error) {
	if m.StateFunc != nil {
		return m.StateFunc(ctx, sessionID)
	}
	return domain.NewExamState(sessionID, "0.1"), nil
}

func (m *MockExam) Report(ctx context.Context, sessionID string) (*domain.ExamReport, error) {
	return &domain.ExamReport{SessionID: sessionID, Status: domain.StatusActive, FinalStep: "0.1"}, nil
}

func (m *MockExam) End(ctx context.Context, sessionID string) error { return nil }

func (m *MockExam) Sessions(ctx context.Context) ([]string, error) {
	return []string{"a", "b"}, nil
}

func newTestHandler(t *testing.T, exam Exam) http.Handler {
	t.Helper()
	handler, err := NewHandler(exam)
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	return handler
}

func TestCreateSession(t *testing.T) {
	handler := newTestHandler(t, &MockExam{})

	req := httptest.NewRequest("POST", "/sessions", strings.NewReader(`{"session_id":"exam-7"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp sessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if resp.SessionID != "exam-7" {
		t.Errorf("Expected session exam-7, got %q", resp.SessionID)
	}
	if resp.CurrentStep != "0.1" {
		t.Errorf("Expected step 0.1, got %q", resp.CurrentStep)
	}
	if resp.Command.QuestionKey != "greeting" {
		t.Errorf("Expected greeting prompt, got %q", resp.Command.QuestionKey)
	}
}

func TestCreateSession_EmptyBody(t *testing.T) {
	handler := newTestHandler(t, &MockExam{})

	req := httptest.NewRequest("POST", "/sessions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for empty body, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "generated-id") {
		t.Error("Expected server-generated session id")
	}
}

func TestSubmitTurn(t *testing.T) {
	handler := newTestHandler(t, &MockExam{})

	body := `{"intent":"greeting","confidence":0.9,"sentiment":"confident"}`
	req := httptest.NewRequest("POST", "/sessions/exam-7/turns", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result domain.TurnResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if result.Verdict.Kind != domain.VerdictClear {
		t.Errorf("Expected clear verdict, got %q", result.Verdict.Kind)
	}
	if result.NextStep != "0.2" {
		t.Errorf("Expected next step 0.2, got %q", result.NextStep)
	}
}

func TestSubmitTurn_ValidationFailure(t *testing.T) {
	handler := newTestHandler(t, &MockExam{})

	// Confidence outside [0,1] must be rejected before reaching the engine.
	body := `{"intent":"greeting","confidence":1.5}`
	req := httptest.NewRequest("POST", "/sessions/exam-7/turns", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
}

func TestSubmitTurn_TerminalSession(t *testing.T) {
	exam := &MockExam{
		SubmitFunc: func(ctx context.Context, sessionID string, resp *domain.ClassifiedResponse) (*domain.TurnResult, error) {
			return nil, &domain.InvalidTransitionError{Op: "Turn", Status: domain.StatusHalted}
		},
	}
	handler := newTestHandler(t, exam)

	body := `{"intent":"greeting","confidence":0.9}`
	req := httptest.NewRequest("POST", "/sessions/exam-7/turns", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for terminal session, got %d", w.Code)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	exam := &MockExam{
		StateFunc: func(ctx context.Context, sessionID string) (*domain.ExamState, error) {
			return nil, domain.ErrSessionNotFound
		},
	}
	handler := newTestHandler(t, exam)

	req := httptest.NewRequest("GET", "/sessions/nope", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
}

func TestEscalateSession_DefaultReason(t *testing.T) {
	handler := newTestHandler(t, &MockExam{})

	req := httptest.NewRequest("POST", "/sessions/exam-7/escalate", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var esc domain.Escalation
	if err := json.Unmarshal(w.Body.Bytes(), &esc); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if esc.Reason != domain.EscalationExternal {
		t.Errorf("Expected external_abort default, got %q", esc.Reason)
	}
}

func TestEscalateSession_UnknownReason(t *testing.T) {
	handler := newTestHandler(t, &MockExam{})

	req := httptest.NewRequest("POST", "/sessions/exam-7/escalate", strings.NewReader(`{"reason":"bored"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for unknown reason, got %d", w.Code)
	}
}

func TestGetInfo(t *testing.T) {
	handler := newTestHandler(t, &MockExam{})

	req := httptest.NewRequest("GET", "/info", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var info map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if info["app"] != "refract-http" {
		t.Errorf("Unexpected app name %q", info["app"])
	}
	if info["api_version"] == "" || info["api_version"] == "unknown" {
		t.Errorf("Expected api_version from embedded spec, got %q", info["api_version"])
	}
}

func TestSubscribeEvents_RequiresSession(t *testing.T) {
	handler := newTestHandler(t, &MockExam{})

	req := httptest.NewRequest("GET", "/events", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 without session_id, got %d", w.Code)
	}
}

func TestSubscribeEvents_Session(t *testing.T) {
	handler := newTestHandler(t, &MockExam{})

	// 1. Subscribe
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/events?session_id=sess-1", nil).WithContext(ctx)

	go func() {
		handler.ServeHTTP(wSub, reqSub)
	}()

	time.Sleep(100 * time.Millisecond) // Wait for subscription to register

	// 2. Trigger a turn for the session
	body := `{"intent":"greeting","confidence":0.9}`
	reqTurn := httptest.NewRequest("POST", "/sessions/sess-1/turns", bytes.NewReader([]byte(body)))
	wTurn := httptest.NewRecorder()
	handler.ServeHTTP(wTurn, reqTurn)

	if wTurn.Code != http.StatusOK {
		t.Fatalf("Turn failed: %d %s", wTurn.Code, wTurn.Body.String())
	}

	// 3. Stop subscription to flush
	cancel()
	time.Sleep(50 * time.Millisecond)

	output := wSub.Body.String()

	if !strings.Contains(output, "event: ping") {
		t.Error("Expected initial ping")
	}
	if !strings.Contains(output, `"type":"turn"`) {
		t.Errorf("Expected turn event in SSE output, got: %s", output)
	}
}

func TestSubscribeEvents_WatchFilter(t *testing.T) {
	handler := newTestHandler(t, &MockExam{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/events?session_id=sess-2&watch=escalation", nil).WithContext(ctx)

	go func() {
		handler.ServeHTTP(wSub, reqSub)
	}()

	time.Sleep(100 * time.Millisecond)

	// A turn event should be filtered out; an escalation should pass.
	body := `{"intent":"greeting","confidence":0.9}`
	reqTurn := httptest.NewRequest("POST", "/sessions/sess-2/turns", strings.NewReader(body))
	handler.ServeHTTP(httptest.NewRecorder(), reqTurn)

	reqEsc := httptest.NewRequest("POST", "/sessions/sess-2/escalate", nil)
	handler.ServeHTTP(httptest.NewRecorder(), reqEsc)

	cancel()
	time.Sleep(50 * time.Millisecond)

	output := wSub.Body.String()
	if strings.Contains(output, `"type":"turn"`) {
		t.Error("Turn event should have been filtered out")
	}
	if !strings.Contains(output, `"type":"escalation"`) {
		t.Errorf("Expected escalation event, got: %s", output)
	}
}
