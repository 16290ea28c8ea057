package domainlink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type Step string

const (
	StepCollecting   Step = "collecting"
	StepInstructions Step = "showingInstructions"
)

// Registrar receives a validated (domain, content id) pair.
type Registrar interface {
	Register(ctx context.Context, domain, contentID string) error
}

// LogRegistrar only logs the request. Nothing is registered or verified.
type LogRegistrar struct {
	Logger *zap.Logger
}

func (r LogRegistrar) Register(_ context.Context, domain, contentID string) error {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Domain link requested",
		zap.String("domain", domain),
		zap.String("cid", contentID))
	return nil
}

var ErrNoContent = errors.New("domainlink: no deployed content to link")

// State is a snapshot of the dialog.
type State struct {
	Open      bool     `json:"open"`
	Step      Step     `json:"step"`
	Domain    string   `json:"domain"`
	Error     string   `json:"error,omitempty"`
	ContentID string   `json:"content_id,omitempty"`
	CanSubmit bool     `json:"can_submit"`
	Records   []Record `json:"records,omitempty"`
}

// Dialog is the two-step domain form. Nothing it holds is persisted.
type Dialog struct {
	registrar Registrar

	mu        sync.Mutex
	open      bool
	step      Step
	domain    string
	errMsg    string
	contentID string
}

func NewDialog(registrar Registrar) *Dialog {
	if registrar == nil {
		registrar = LogRegistrar{}
	}
	return &Dialog{registrar: registrar, step: StepCollecting}
}

// Open shows the dialog for contentID, starting from a clean form.
func (d *Dialog) Open(contentID string) error {
	if contentID == "" {
		return ErrNoContent
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
	d.open = true
	d.contentID = contentID
	return nil
}

// Close hides the dialog and forgets the form.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

func (d *Dialog) reset() {
	d.open = false
	d.step = StepCollecting
	d.domain = ""
	d.errMsg = ""
	d.contentID = ""
}

// Change records an edit. Once an error is on screen every edit re-validates,
// so the error clears as soon as the input becomes valid.
func (d *Dialog) Change(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.domain = value
	if d.errMsg != "" {
		d.validate()
	}
}

// Blur validates the field when it loses focus.
func (d *Dialog) Blur() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.validate()
}

func (d *Dialog) validate() bool {
	if err := Validate(d.domain); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			d.errMsg = verr.Message
		} else {
			d.errMsg = err.Error()
		}
		return false
	}
	d.errMsg = ""
	return true
}

// CanSubmit mirrors the state of the Next button.
func (d *Dialog) CanSubmit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.canSubmit()
}

func (d *Dialog) canSubmit() bool {
	return d.open && d.step == StepCollecting && d.domain != "" && d.errMsg == ""
}

// Submit advances to the instructions step when the domain is valid. It
// reports whether the dialog advanced.
func (d *Dialog) Submit(ctx context.Context) (bool, error) {
	d.mu.Lock()
	if !d.open || d.step != StepCollecting {
		d.mu.Unlock()
		return false, nil
	}
	if !d.validate() {
		d.mu.Unlock()
		return false, nil
	}
	d.step = StepInstructions
	domain, cid := d.domain, d.contentID
	d.mu.Unlock()

	if err := d.registrar.Register(ctx, domain, cid); err != nil {
		return true, fmt.Errorf("domainlink: register %s: %w", domain, err)
	}
	return true, nil
}

// Records is empty until the instructions step.
func (d *Dialog) Records() []Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.step != StepInstructions {
		return nil
	}
	return Records(d.domain, d.contentID)
}

// CopyText returns the clipboard text for one record.
func (d *Dialog) CopyText(kind RecordKind) (string, error) {
	for _, r := range d.Records() {
		if r.Kind == kind {
			return r.CopyText(), nil
		}
	}
	return "", fmt.Errorf("domainlink: no %s record available", kind)
}

func (d *Dialog) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := State{
		Open:      d.open,
		Step:      d.step,
		Domain:    d.domain,
		Error:     d.errMsg,
		ContentID: d.contentID,
		CanSubmit: d.canSubmit(),
	}
	if d.step == StepInstructions {
		s.Records = Records(d.domain, d.contentID)
	}
	return s
}
