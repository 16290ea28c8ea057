package deploy

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RichardoC/dehost/internal/ipfs"
)

const shareFailedReason = "Failed to upload to IPFS. Please try again."

type TextUploader interface {
	UploadText(ctx context.Context, text string, opts ...ipfs.UploadOption) (ipfs.UploadResult, error)
}

// Sharer uploads free text from the file share page. It has its own
// in-flight slot, independent of site deployments.
type Sharer struct {
	uploader TextUploader
	notifier Notifier
	logger   *zap.Logger
	timeout  time.Duration

	slot slot
}

func NewSharer(uploader TextUploader, notifier Notifier, logger *zap.Logger, timeout time.Duration, flag func(bool)) (*Sharer, error) {
	if uploader == nil {
		return nil, errors.New("deploy: uploader must not be nil")
	}
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Sharer{
		uploader: uploader,
		notifier: notifier,
		logger:   logger,
		timeout:  timeout,
		slot:     slot{flag: flag},
	}, nil
}

func (s *Sharer) Uploading() bool {
	return s.slot.busy.Load()
}

// Share pins text as a file. Blank text is rejected without a notification.
func (s *Sharer) Share(ctx context.Context, text string, opts ...ipfs.UploadOption) (ipfs.UploadResult, error) {
	if strings.TrimSpace(text) == "" {
		return ipfs.UploadResult{}, ErrEmptyText
	}
	if !s.slot.acquire() {
		s.notifier.Notify(Notification{Level: LevelWarning, Message: ErrShareInProgress.Reason})
		return ipfs.UploadResult{}, ErrShareInProgress
	}
	defer s.slot.release()

	uctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.uploader.UploadText(uctx, text, opts...)
	if err != nil {
		derr := classifyUpload(err, shareFailedReason)
		s.logger.Error("Failed to share text",
			zap.String("code", string(derr.Code)),
			zap.Int("status", uploadStatus(err)),
			zap.Error(err))
		s.notifier.Notify(Notification{Level: LevelError, Message: derr.Reason})
		return ipfs.UploadResult{}, derr
	}

	s.notifier.Notify(Notification{
		Level:    LevelSuccess,
		Message:  "Uploaded to IPFS!",
		URL:      res.ViewURL,
		CopyText: res.ViewURL,
	})
	return res, nil
}
