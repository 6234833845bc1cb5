// Package apply drives a single job application from the apply button
// through any chatbot screening questions to the portal's acknowledgment.
package apply

import "context"

// Form is the portal-specific view of one listing's application flow.
// Implementations translate each step into page actions; the Machine owns
// the ordering.
type Form interface {
	TriggerApply(ctx context.Context) error
	// ChatPanelPresent reports whether a screening chatbot is open.
	ChatPanelPresent(ctx context.Context) (bool, error)
	// LatestQuestion returns the newest bot message, or "" when there is none.
	LatestQuestion(ctx context.Context) (string, error)
	// Widget describes the input the bot expects for the latest question.
	Widget(ctx context.Context) (Widget, error)
	SelectOption(ctx context.Context, index int) error
	SkipQuestion(ctx context.Context) error
	ToggleCheckbox(ctx context.Context) error
	EnterText(ctx context.Context, text string) error
	// SaveAndContinue presses the chat's submit control if there is one and
	// reports whether it did.
	SaveAndContinue(ctx context.Context) (bool, error)
	SuccessAcknowledged(ctx context.Context) (bool, error)
}

// Widget is the input kind of a screening question. It is a closed set:
// RadioChoice, Checkbox or FreeText.
type Widget interface {
	widget()
}

// RadioChoice is a single-choice question. HasSkip reports a separate
// "skip this question" control next to the options.
type RadioChoice struct {
	Options []string
	HasSkip bool
}

// Checkbox is a consent-style tick box.
type Checkbox struct{}

// FreeText is a typed answer.
type FreeText struct {
	HasSkip bool
}

func (RadioChoice) widget() {}
func (Checkbox) widget()    {}
func (FreeText) widget()    {}

// Answerer produces answers for screening questions. ai.Oracle implements it.
type Answerer interface {
	Ask(ctx context.Context, question string) string
	AskOneLine(ctx context.Context, question string, options []string) string
}
