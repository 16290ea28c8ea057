// Package deploy publishes generated sites from a conversation to IPFS.
package deploy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RichardoC/dehost/internal/ipfs"
	"github.com/RichardoC/dehost/internal/models"
)

const defaultTimeout = 90 * time.Second

type Uploader interface {
	Upload(ctx context.Context, payload []byte, name string, opts ...ipfs.UploadOption) (ipfs.UploadResult, error)
}

type Recorder interface {
	SaveDeployment(d *models.Deployment) error
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Notification is a user-visible outcome of an action.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	// CopyText is offered with a copy-to-clipboard affordance.
	CopyText string `json:"copy_text,omitempty"`
	// DomainLinkCID, when set, offers the domain linking dialog for that content.
	DomainLinkCID string `json:"domain_link_cid,omitempty"`
}

type Notifier interface {
	Notify(n Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// slot is a single-slot in-flight handle: at most one holder at a time.
type slot struct {
	busy atomic.Bool
	flag func(bool)
}

func (s *slot) acquire() bool {
	if !s.busy.CompareAndSwap(false, true) {
		return false
	}
	if s.flag != nil {
		s.flag(true)
	}
	return true
}

// release publishes false before freeing the slot, so the next holder's true
// is always the later publish.
func (s *slot) release() {
	if s.flag != nil {
		s.flag(false)
	}
	s.busy.Store(false)
}

// Action runs extract, upload and notify for one conversation at a time.
type Action struct {
	uploader Uploader
	notifier Notifier
	recorder Recorder
	logger   *zap.Logger
	timeout  time.Duration

	slot slot

	mu     sync.RWMutex
	latest *ipfs.UploadResult
}

type Option func(*Action)

func WithNotifier(n Notifier) Option {
	return func(a *Action) { a.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(a *Action) { a.recorder = r }
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Action) { a.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(a *Action) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithFlag observes the deploying flag; it is called with true on entry and
// false on every exit.
func WithFlag(f func(bool)) Option {
	return func(a *Action) { a.slot.flag = f }
}

func NewAction(uploader Uploader, opts ...Option) (*Action, error) {
	if uploader == nil {
		return nil, errors.New("deploy: uploader must not be nil")
	}
	a := &Action{
		uploader: uploader,
		notifier: NotifierFunc(func(Notification) {}),
		logger:   zap.NewNop(),
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Deploying reports whether a deployment is in flight.
func (a *Action) Deploying() bool {
	return a.slot.busy.Load()
}

// Latest returns the result of the most recent successful deployment. It is
// cleared as soon as a new deployment starts.
func (a *Action) Latest() (ipfs.UploadResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.latest == nil {
		return ipfs.UploadResult{}, false
	}
	return *a.latest, true
}

func (a *Action) setLatest(r *ipfs.UploadResult) {
	a.mu.Lock()
	a.latest = r
	a.mu.Unlock()
}

// Deploy extracts the latest generated site from messages and pins it. Every
// outcome is also reported through the notifier.
func (a *Action) Deploy(ctx context.Context, convID int64, messages []models.Message, opts ...ipfs.UploadOption) (ipfs.UploadResult, error) {
	if !a.slot.acquire() {
		a.notifier.Notify(Notification{Level: LevelWarning, Message: ErrInProgress.Reason})
		return ipfs.UploadResult{}, ErrInProgress
	}
	defer a.slot.release()

	a.setLatest(nil)

	doc, err := Extract(messages)
	if err != nil {
		a.logger.Info("Nothing to deploy", zap.Int64("conversation_id", convID), zap.Error(err))
		a.notifier.Notify(Notification{Level: LevelError, Message: UserMessage(err)})
		return ipfs.UploadResult{}, err
	}

	uctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := a.uploader.Upload(uctx, []byte(doc), "index.html", opts...)
	if err != nil {
		derr := classifyUpload(err, uploadFailedReason)
		a.logger.Error("Failed to deploy to IPFS",
			zap.Int64("conversation_id", convID),
			zap.String("code", string(derr.Code)),
			zap.Int("status", uploadStatus(err)),
			zap.Error(err))
		a.notifier.Notify(Notification{Level: LevelError, Message: derr.Reason})
		return ipfs.UploadResult{}, derr
	}

	a.setLatest(&res)
	a.record(convID, res)

	a.notifier.Notify(Notification{
		Level:         LevelSuccess,
		Message:       "Deployed to IPFS!",
		URL:           res.ViewURL,
		CopyText:      res.ViewURL,
		DomainLinkCID: res.ContentID,
	})
	return res, nil
}

// record persists the deployment. History is best effort and never fails
// the deployment itself.
func (a *Action) record(convID int64, res ipfs.UploadResult) {
	if a.recorder == nil {
		return
	}
	d := &models.Deployment{
		ID:        uuid.NewString(),
		ConvID:    convID,
		ContentID: res.ContentID,
		ViewURL:   res.ViewURL,
		Size:      res.Size,
	}
	if err := a.recorder.SaveDeployment(d); err != nil {
		a.logger.Warn("Failed to record deployment",
			zap.String("cid", res.ContentID),
			zap.Error(err))
	}
}
