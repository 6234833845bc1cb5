package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jobsuitex/autoapply/pkg/models"
)

// Skip is returned whenever the oracle cannot produce an answer. Callers
// treat it as "leave this question unanswered if the form allows it".
const Skip = "Skip"

const basePersona = "You are filling in job application forms on behalf of a candidate. " +
	"Answer every question in the first person as the candidate would, briefly and truthfully " +
	"based on the profile below. Never explain your answer."

const personaInstruction = "You write system instructions for an assistant that answers job application " +
	"questions as a specific candidate. From the profile text you are given, write a first-person script " +
	"covering the candidate's name, current role, total years of experience, skills and tools, education, " +
	"employers with durations and titles, notable projects with results, location and salary preferences, " +
	"certifications and languages. Keep the tone positive, professional and confident. " +
	"Output only the instruction text."

// personaClosing always ends a derived persona so answers stay one line.
const personaClosing = "Always answer in short, crisp, one-line responses like a real applicant."

var oneLineSplit = regexp.MustCompile(`[.,\n]`)

// Oracle answers screening questions through an AIProvider. The zero persona
// answers generically; WithPersona seeds it with an applicant's profile for
// one cycle. Provider errors never escape: they are logged and folded into
// Skip.
type Oracle struct {
	provider models.AIProvider
	persona  string
	timeout  time.Duration
}

// NewOracle creates an Oracle that bounds every provider call by timeout.
func NewOracle(provider models.AIProvider, timeout time.Duration) *Oracle {
	return &Oracle{provider: provider, timeout: timeout}
}

// WithPersona returns a copy of the oracle seeded with the applicant's
// self-description. The receiver is left untouched so one Oracle can serve
// concurrent cycles.
func (o *Oracle) WithPersona(selfDescription string) *Oracle {
	cp := *o
	cp.persona = strings.TrimSpace(selfDescription)
	return &cp
}

// Ask returns a free-text answer to question, or Skip.
func (o *Oracle) Ask(ctx context.Context, question string) string {
	reply, err := o.complete(ctx, question)
	if err != nil {
		slog.Warn("oracle could not answer", "error", err, "provider", o.provider.Name())
		return Skip
	}
	return reply
}

// AskOneLine asks the model to choose one of options and returns the first
// sentence fragment of its reply. The result is not guaranteed to be one of
// options; matching it back is the caller's job.
func (o *Oracle) AskOneLine(ctx context.Context, question string, options []string) string {
	prompt := fmt.Sprintf("Choose only one from the following options:\nOptions: %s\nQuestion: %s",
		strings.Join(options, ", "), question)

	reply, err := o.complete(ctx, prompt)
	if err != nil {
		slog.Warn("oracle could not choose an option", "error", err, "provider", o.provider.Name())
		return Skip
	}
	first := strings.TrimSpace(oneLineSplit.Split(reply, 2)[0])
	if first == "" {
		return Skip
	}
	return first
}

// DerivePersona asks the model to turn the applicant's profile text into a
// self-description suitable for WithPersona. Unlike Ask it returns provider
// errors instead of Skip.
func (o *Oracle) DerivePersona(ctx context.Context, profile string) (string, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return "", ErrInvalidResponse
	}
	persona, err := o.call(ctx, personaInstruction, "Profile:\n"+profile)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(persona, personaClosing) {
		persona += "\n" + personaClosing
	}
	return persona, nil
}

func (o *Oracle) complete(ctx context.Context, prompt string) (string, error) {
	return o.call(ctx, o.systemPrompt(), prompt)
}

func (o *Oracle) call(ctx context.Context, system, prompt string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	reply, err := o.provider.Complete(ctx, models.CompletionRequest{
		System: system,
		Prompt: prompt,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
		}
		if errors.Is(err, ErrInferenceTimeout) || errors.Is(err, ErrProviderUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrInvalidResponse
	}
	return reply, nil
}

func (o *Oracle) systemPrompt() string {
	if o.persona == "" {
		return basePersona
	}
	return basePersona + "\n\nCandidate profile:\n" + o.persona
}
