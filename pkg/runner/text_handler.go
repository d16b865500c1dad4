package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/kharven/refract/internal/classify"
	"github.com/kharven/refract/pkg/domain"
)

// TextHandler implements the interactive text interface. Raw utterances are
// sanitized and run through the keyword classifier before they reach the
// engine.
type TextHandler struct {
	source      io.Reader
	interactive bool // true when reading a real terminal, where EOF may just mean an interrupted read
	Reader      *bufio.Reader
	Writer      io.Writer
	Renderer    ContentRenderer

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		source: r,
		Writer: w,
	}

	h.interactive = isTerminal(r)
	h.Reader = bufio.NewReader(h.source)

	for _, opt := range opts {
		opt(h)
	}
	return h
}

// isTerminal reports whether the reader is an interactive terminal. On a
// terminal a read interrupted by a signal can surface as EOF even though the
// stream is still usable, so the pump must not shut down on the first EOF.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')

		if text != "" {
			h.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err == io.EOF {
				if h.interactive {
					// The read likely lost a race with a signal; report
					// EOF but keep the pump alive for the next prompt.
					h.inputChan <- inputResult{err: io.EOF}
					time.Sleep(50 * time.Millisecond)
					continue
				}
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff to prevent CPU spikes on persistent failure.
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// Present renders the step's question, the instrument command, and the
// scripted answer options as markdown.
func (h *TextHandler) Present(ctx context.Context, step *domain.ProtocolStep, state *domain.ExamState, cmd domain.DeviceCommand) error {
	md := presentMarkdown(step, state, cmd)
	if md == "" {
		return nil
	}
	output := md
	if h.Renderer != nil {
		if rendered, err := h.Renderer(md); err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	return err
}

// Read prompts, pulls one line from the pump, and classifies it. Sanitizer
// rejections re-prompt instead of failing the exam.
func (h *TextHandler) Read(ctx context.Context, step *domain.ProtocolStep) (*domain.ClassifiedResponse, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return nil, io.EOF
			}
			if res.err != nil {
				return nil, res.err
			}

			text := strings.TrimSpace(res.text)
			if text == "exit" || text == "quit" {
				return nil, io.EOF
			}

			resp, err := classify.Classify(step, text)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return resp, nil
		}
	}
}

// Result surfaces accepted adjustments and advisories; silent on plain
// transitions to keep the transcript readable.
func (h *TextHandler) Result(ctx context.Context, result *domain.TurnResult) error {
	for _, adj := range result.Adjustments {
		if adj.Accepted {
			fmt.Fprintf(h.Writer, "  [device] %s %s -> %+.2f D\n",
				eyeName(adj.Request.Eye), adj.Request.Parameter, adj.NewValue)
		} else {
			fmt.Fprintf(h.Writer, "  [device] adjustment held: %s\n", adj.Message)
		}
	}
	for _, adv := range result.Advisories {
		fmt.Fprintf(h.Writer, "  [safety] %s\n", advisoryText(adv))
	}
	return nil
}

func (h *TextHandler) System(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return err
}

// presentMarkdown lays out one step as a small markdown block.
func presentMarkdown(step *domain.ProtocolStep, state *domain.ExamState, cmd domain.DeviceCommand) string {
	var b strings.Builder

	if step == nil {
		switch state.Status {
		case domain.StatusFinalized:
			fmt.Fprintf(&b, "## Exam complete\n\nPrescription finalized for session `%s`.\n", state.SessionID)
		case domain.StatusHalted:
			fmt.Fprintf(&b, "## Exam halted\n\nSession `%s` was referred to a professional (%s).\n",
				state.SessionID, state.EscalationReason)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "### Step %s: %s\n\n", step.ID, step.Name)

	switch cmd.Kind {
	case domain.CommandPresentLensPair:
		if cmd.LensPair != nil {
			fmt.Fprintf(&b, "Comparing lenses for the %s.\n\n", eyeName(cmd.Eye))
			fmt.Fprintf(&b, "- **%s**: %+.2f D\n", cmd.LensPair.OptionA.Label, cmd.LensPair.OptionA.Sphere)
			fmt.Fprintf(&b, "- **%s**: %+.2f D\n\n", cmd.LensPair.OptionB.Label, cmd.LensPair.OptionB.Sphere)
		}
		b.WriteString("Which looks clearer?\n")
	case domain.CommandPresentJCC:
		fmt.Fprintf(&b, "Cross-cylinder check for the %s. ", eyeName(cmd.Eye))
		b.WriteString("Does the red or the green side look clearer?\n")
	case domain.CommandBalanceBinocular:
		b.WriteString("Both eyes open now. Which eye sees the chart more clearly?\n")
	case domain.CommandRepeatPresentation:
		if cmd.Reason != "" {
			fmt.Fprintf(&b, "_Repeating this step: %s_\n\n", cmd.Reason)
		}
	}

	if len(step.Options) > 0 {
		b.WriteString("\n")
		for i, opt := range step.Options {
			fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
		}
	}
	return b.String()
}

func eyeName(e domain.Eye) string {
	switch e {
	case domain.EyeOD:
		return "right eye"
	case domain.EyeOS:
		return "left eye"
	}
	return "both eyes"
}

func advisoryText(a domain.Advisory) string {
	switch a {
	case domain.AdvisoryFatigueBreak:
		return "patient fatigue detected, a short break is recommended"
	case domain.AdvisoryOfferBreak:
		return "the session is getting long, consider offering a break"
	case domain.AdvisoryWarnAndComplete:
		return "session length warning, wrap up the remaining steps"
	case domain.AdvisoryEscalationRecommended:
		return "repeated incidents recorded, professional review recommended"
	}
	return string(a)
}
