package naukri

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jobsuitex/autoapply/internal/apply"
	"github.com/jobsuitex/autoapply/internal/browser"
)

// form is the apply flow of one listing page, including the screening
// chatbot drawer.
type form struct {
	page browser.PageDriver

	// optionIndex maps the options handed to the machine back to label
	// positions on the page, with the skip label removed.
	optionIndex []int
	skipIndex   int
	// textSent is set once a typed answer has been submitted with Enter.
	textSent bool
}

func (f *form) TriggerApply(ctx context.Context) error {
	if err := f.page.WaitForSelector(ctx, selApplyButton); err != nil {
		return fmt.Errorf("wait for apply button: %w", err)
	}
	return f.page.Click(ctx, selApplyButton)
}

func (f *form) ChatPanelPresent(ctx context.Context) (bool, error) {
	return browser.Exists(ctx, f.page, selChatDrawer)
}

func (f *form) LatestQuestion(ctx context.Context) (string, error) {
	var q string
	if err := f.page.Evaluate(ctx, latestQuestionScript, &q); err != nil {
		return "", err
	}
	return strings.TrimSpace(q), nil
}

func (f *form) Widget(ctx context.Context) (apply.Widget, error) {
	f.optionIndex = nil
	f.skipIndex = -1
	f.textSent = false

	var labels []string
	if err := f.page.Evaluate(ctx, radioLabelsScript, &labels); err != nil {
		return nil, fmt.Errorf("read radio options: %w", err)
	}
	if len(labels) > 0 {
		w := apply.RadioChoice{}
		for i, l := range labels {
			if strings.EqualFold(strings.TrimSpace(l), skipOptionLabel) {
				f.skipIndex = i
				w.HasSkip = true
				continue
			}
			f.optionIndex = append(f.optionIndex, i)
			w.Options = append(w.Options, l)
		}
		return w, nil
	}

	checkbox, err := browser.Exists(ctx, f.page, selCheckbox)
	if err != nil {
		return nil, fmt.Errorf("look for checkbox: %w", err)
	}
	if checkbox {
		return apply.Checkbox{}, nil
	}

	var hasSkip bool
	if err := f.page.Evaluate(ctx, textSkipScript, &hasSkip); err != nil {
		return nil, fmt.Errorf("look for skip chip: %w", err)
	}
	return apply.FreeText{HasSkip: hasSkip}, nil
}

func (f *form) SelectOption(ctx context.Context, i int) error {
	if i < 0 || i >= len(f.optionIndex) {
		return fmt.Errorf("option %d out of range", i)
	}
	return f.clickRadio(ctx, f.optionIndex[i])
}

func (f *form) SkipQuestion(ctx context.Context) error {
	if f.skipIndex >= 0 {
		return f.clickRadio(ctx, f.skipIndex)
	}
	var clicked bool
	if err := f.page.Evaluate(ctx, clickTextSkipScript, &clicked); err != nil {
		return err
	}
	if !clicked {
		return errors.New("no skip control")
	}
	f.textSent = true
	return nil
}

func (f *form) clickRadio(ctx context.Context, label int) error {
	var clicked bool
	if err := f.page.Evaluate(ctx, clickRadioScript(label), &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("radio label %d not found", label)
	}
	return nil
}

func (f *form) ToggleCheckbox(ctx context.Context) error {
	return f.page.Click(ctx, selCheckbox)
}

func (f *form) EnterText(ctx context.Context, text string) error {
	var set bool
	if err := f.page.Evaluate(ctx, setChatTextScript(text), &set); err != nil {
		return err
	}
	if !set {
		return errors.New("chat input not found")
	}
	if err := f.page.Press(ctx, browser.KeyEnter); err != nil {
		return err
	}
	f.textSent = true
	return nil
}

// SaveAndContinue clicks the send control after a radio or checkbox answer.
// Typed answers and skip chips are already sent.
func (f *form) SaveAndContinue(ctx context.Context) (bool, error) {
	if f.textSent {
		return false, nil
	}
	ok, err := browser.Exists(ctx, f.page, selSendMessage)
	if err != nil || !ok {
		return false, err
	}
	if err := f.page.Click(ctx, selSendMessage); err != nil {
		return false, err
	}
	return true, nil
}

func (f *form) SuccessAcknowledged(ctx context.Context) (bool, error) {
	var ok bool
	if err := f.page.Evaluate(ctx, successScript, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
