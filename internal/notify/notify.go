// Package notify mirrors user-facing notices to the desktop notification area.
package notify

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"voicelist/internal/domain"
	"voicelist/internal/ports"
)

const appName = "Voice List"

// Notifier shows desktop notifications when enabled.
type Notifier struct {
	enabled bool
	send    func(title, message, icon string) error
	logger  *zap.Logger
}

func New(enabled bool, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{enabled: enabled, send: beeep.Notify, logger: logger}
}

// Notice shows message. Delivery failures are logged and otherwise ignored.
func (n *Notifier) Notice(code domain.NoticeCode, message string) {
	if n == nil || !n.enabled || message == "" {
		return
	}
	if err := n.send(appName, message, ""); err != nil {
		n.logger.Debug("desktop notification failed", zap.String("code", string(code)), zap.Error(err))
	}
}

// Sink forwards every event to the wrapped sink and additionally shows
// notices on the desktop.
type Sink struct {
	ports.EventSink
	notifier *Notifier
}

func WrapSink(next ports.EventSink, notifier *Notifier) *Sink {
	return &Sink{EventSink: next, notifier: notifier}
}

func (s *Sink) Notice(code domain.NoticeCode, message string) {
	s.EventSink.Notice(code, message)
	s.notifier.Notice(code, message)
}
