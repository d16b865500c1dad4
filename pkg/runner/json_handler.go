package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/kharven/refract/internal/classify"
	"github.com/kharven/refract/pkg/domain"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines
// communication. Each Present/Result/System call emits one envelope line;
// each Read consumes one line, normally a pre-classified response object.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// jsonEnvelope is the line format emitted to the host process.
type jsonEnvelope struct {
	Type    string                `json:"type"`
	Step    *domain.ProtocolStep  `json:"step,omitempty"`
	State   *domain.ExamState     `json:"state,omitempty"`
	Command *domain.DeviceCommand `json:"command,omitempty"`
	Result  *domain.TurnResult    `json:"result,omitempty"`
	Message string                `json:"message,omitempty"`
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Present(ctx context.Context, step *domain.ProtocolStep, state *domain.ExamState, cmd domain.DeviceCommand) error {
	return h.Encoder.Encode(jsonEnvelope{
		Type:    "prompt",
		Step:    step,
		State:   state,
		Command: &cmd,
	})
}

// Read consumes one input line. A JSON object is decoded as an already
// classified response; a quoted or bare string is treated as a raw utterance
// and run through the keyword classifier, so hosts can mix both styles.
func (h *JSONHandler) Read(ctx context.Context, step *domain.ProtocolStep) (*domain.ClassifiedResponse, error) {
	for {
		line, err := h.Reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil {
				return nil, err
			}
			continue
		}

		if strings.HasPrefix(line, "{") {
			var resp domain.ClassifiedResponse
			if uerr := json.Unmarshal([]byte(line), &resp); uerr != nil {
				return nil, uerr
			}
			return &resp, nil
		}

		utterance := line
		var quoted string
		if uerr := json.Unmarshal([]byte(line), &quoted); uerr == nil {
			utterance = quoted
		}
		return classify.Classify(step, utterance)
	}
}

func (h *JSONHandler) Result(ctx context.Context, result *domain.TurnResult) error {
	return h.Encoder.Encode(jsonEnvelope{Type: "result", Result: result})
}

func (h *JSONHandler) System(ctx context.Context, msg string) error {
	return h.Encoder.Encode(jsonEnvelope{Type: "system", Message: msg})
}
