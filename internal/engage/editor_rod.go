package engage

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/commentron/commentron/internal/dom"
	"github.com/commentron/commentron/internal/stealth"
)

// rodEditor drives the live LinkedIn comment editor.
type rodEditor struct {
	page   *rod.Page
	el     *rod.Element
	submit *rod.Element
}

// openEditor clicks the post's comment control and waits for the editor to
// appear.
func openEditor(page *rod.Page, wait time.Duration) (*rodEditor, error) {
	btn, _, err := dom.CommentButton.FirstWithTimeout(page, 3*time.Second)
	if err != nil {
		return nil, err
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("failed to click comment button: %w", err)
	}

	el, _, err := dom.CommentEditor.FirstWithTimeout(page, wait)
	if err != nil {
		return nil, err
	}
	return &rodEditor{page: page, el: el}, nil
}

// Fill types the text and dispatches synthetic input/change events so the
// host page's framework registers the edit.
func (e *rodEditor) Fill(text string) error {
	if err := stealth.TypeInto(e.page, e.el, text); err != nil {
		return err
	}
	_, err := e.el.Eval(`() => {
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`)
	if err != nil {
		return fmt.Errorf("failed to dispatch editor events: %w", err)
	}
	return nil
}

func (e *rodEditor) SubmitReady() bool {
	btn, _, err := dom.SubmitComment.FirstWithTimeout(e.page, 3*time.Second)
	if err != nil {
		return false
	}
	if disabled, err := btn.Property("disabled"); err == nil && disabled.Bool() {
		return false
	}
	e.submit = btn
	return true
}

func (e *rodEditor) Submit() error {
	if e.submit == nil {
		return fmt.Errorf("submit control not located")
	}
	if err := e.submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click submit: %w", err)
	}
	return nil
}
