package apply

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobsuitex/autoapply/internal/ai"
	"github.com/jobsuitex/autoapply/pkg/models"
)

type State string

const (
	StateStart            State = "start"
	StateSubmitted        State = "submitted"
	StateChatForm         State = "chat_form"
	StateAwaitingQuestion State = "awaiting_question"
	StateAnswering        State = "answering"
	StateSubmitting       State = "submitting"
	StateSuccess          State = "success"
	StateUnknown          State = "unknown"
	StateFailed           State = "failed"
)

const DefaultMaxTurns = 10

// NoAnswer is typed into a free-text question the oracle could not answer
// and the form will not let us skip.
const NoAnswer = "N/A"

// Result is the terminal state of one application attempt.
type Result struct {
	State State
	// Turns is the number of screening questions answered.
	Turns int
	Err   error
}

// Outcome maps the terminal state onto a stored outcome kind and reason.
// An unacknowledged application counts as skipped, not applied.
func (r Result) Outcome() (kind, reason string) {
	switch r.State {
	case StateSuccess:
		return models.OutcomeApplied, ""
	case StateFailed:
		if r.Err != nil {
			return models.OutcomeFailed, r.Err.Error()
		}
		return models.OutcomeFailed, "apply failed"
	default:
		return models.OutcomeSkipped, "application not acknowledged"
	}
}

// Machine runs the apply flow. It is stateless between runs and safe to
// share across goroutines as long as the Answerer is.
type Machine struct {
	oracle   Answerer
	policy   MatchPolicy
	maxTurns int
	settle   time.Duration
}

// NewMachine creates a Machine. maxTurns bounds the number of chat answers
// per application; settle is the pause after each submit while the bot
// renders its next message.
func NewMachine(oracle Answerer, policy MatchPolicy, maxTurns int, settle time.Duration) *Machine {
	if maxTurns < 1 {
		maxTurns = DefaultMaxTurns
	}
	if policy == "" {
		policy = MatchContains
	}
	return &Machine{oracle: oracle, policy: policy, maxTurns: maxTurns, settle: settle}
}

// WithOracle returns a copy of the machine that asks oracle instead.
func (m *Machine) WithOracle(oracle Answerer) *Machine {
	cp := *m
	cp.oracle = oracle
	return &cp
}

// Run drives form to a terminal state.
func (m *Machine) Run(ctx context.Context, form Form) Result {
	if err := form.TriggerApply(ctx); err != nil {
		return Result{State: StateFailed, Err: fmt.Errorf("trigger apply: %w", err)}
	}
	m.pause(ctx)

	turns := 0
	chat, err := form.ChatPanelPresent(ctx)
	if err != nil {
		slog.Debug("chat panel check failed", "error", err)
	}
	if chat {
		turns = m.chat(ctx, form)
	}

	ok, err := form.SuccessAcknowledged(ctx)
	if err != nil {
		slog.Debug("acknowledgment check failed", "error", err)
	}
	if ok {
		return Result{State: StateSuccess, Turns: turns}
	}
	return Result{State: StateUnknown, Turns: turns}
}

// chat answers screening questions until the panel closes, the bot stops
// asking, or the turn budget runs out. It returns the number of answers.
func (m *Machine) chat(ctx context.Context, form Form) int {
	turns := 0
	for turns < m.maxTurns {
		if ctx.Err() != nil {
			return turns
		}

		question, err := form.LatestQuestion(ctx)
		if err != nil || question == "" {
			return turns
		}

		widget, err := form.Widget(ctx)
		if err != nil {
			slog.Debug("could not read answer widget", "error", err, "question", question)
			return turns
		}
		if err := m.answer(ctx, form, question, widget); err != nil {
			slog.Debug("could not answer question", "error", err, "question", question)
			return turns
		}
		turns++

		if _, err := form.SaveAndContinue(ctx); err != nil {
			slog.Debug("save and continue failed", "error", err)
			return turns
		}
		m.pause(ctx)

		open, err := form.ChatPanelPresent(ctx)
		if err != nil || !open {
			return turns
		}
	}
	slog.Debug("chat turn budget exhausted", "max_turns", m.maxTurns)
	return turns
}

func (m *Machine) answer(ctx context.Context, form Form, question string, widget Widget) error {
	switch w := widget.(type) {
	case RadioChoice:
		return m.answerRadio(ctx, form, question, w)
	case Checkbox:
		return form.ToggleCheckbox(ctx)
	case FreeText:
		return m.answerText(ctx, form, question, w)
	default:
		return fmt.Errorf("unsupported widget %T", widget)
	}
}

func (m *Machine) answerRadio(ctx context.Context, form Form, question string, w RadioChoice) error {
	if len(w.Options) == 0 {
		if w.HasSkip {
			return form.SkipQuestion(ctx)
		}
		return fmt.Errorf("radio question %q has no options", question)
	}

	answer := m.oracle.AskOneLine(ctx, question, w.Options)
	if answer == ai.Skip {
		if w.HasSkip {
			return form.SkipQuestion(ctx)
		}
		return form.SelectOption(ctx, 0)
	}

	idx, ok := m.policy.Resolve(answer, w.Options)
	if !ok {
		slog.Debug("answer matched no option, choosing first", "answer", answer, "options", w.Options)
		idx = 0
	}
	return form.SelectOption(ctx, idx)
}

func (m *Machine) answerText(ctx context.Context, form Form, question string, w FreeText) error {
	answer := m.oracle.Ask(ctx, question)
	if answer == ai.Skip {
		if w.HasSkip {
			return form.SkipQuestion(ctx)
		}
		answer = NoAnswer
	}
	return form.EnterText(ctx, answer)
}

func (m *Machine) pause(ctx context.Context) {
	if m.settle <= 0 {
		return
	}
	t := time.NewTimer(m.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
