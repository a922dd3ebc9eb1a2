package engage

import (
	"fmt"
	"time"

	"github.com/commentron/commentron/internal/generator"
)

// Editor is the comment input surface: fill it, then maybe submit. The rod
// implementation drives the live editor; tests use fakes to pin down the
// submit-exactly-once and never-submit-in-review guarantees.
type Editor interface {
	Fill(text string) error
	// SubmitReady reports whether a submit control is present and enabled.
	SubmitReady() bool
	Submit() error
}

// FinishComment fills the editor and applies the autopost policy: in
// manual-review mode the text is left in the box and never submitted; in
// autopost mode the submit control is clicked once, and only when ready.
func FinishComment(ed Editor, text, autopostMode string, settleDelay time.Duration) (submitted bool, err error) {
	if err := ed.Fill(text); err != nil {
		return false, fmt.Errorf("failed to fill comment editor: %w", err)
	}

	if autopostMode != generator.AutopostOn {
		return false, nil
	}

	// Let the host page react to the input events before submitting.
	if settleDelay > 0 {
		time.Sleep(settleDelay)
	}

	if !ed.SubmitReady() {
		return false, fmt.Errorf("submit control missing or disabled")
	}
	if err := ed.Submit(); err != nil {
		return false, fmt.Errorf("failed to submit comment: %w", err)
	}
	return true, nil
}
