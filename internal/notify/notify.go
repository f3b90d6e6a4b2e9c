// Package notify builds the {type, message} notifications attached to every
// mutating response and counts them.
package notify

import (
	"projtrack/internal/apperr"
	"projtrack/pkg/metrics"

	"go.uber.org/zap"
)

type Type string

const (
	Success Type = "success"
	Error   Type = "error"
	Warning Type = "warning"
	Info    Type = "info"
)

type Notification struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
}

type Notifier struct {
	logger *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{logger: logger}
}

func (n *Notifier) Success(msg string) Notification {
	return n.emit(Notification{Type: Success, Message: msg})
}

func (n *Notifier) Warning(msg string) Notification {
	return n.emit(Notification{Type: Warning, Message: msg})
}

func (n *Notifier) Info(msg string) Notification {
	return n.emit(Notification{Type: Info, Message: msg})
}

// FromError logs the failure with its cause and returns the user-facing
// notification. Conflicts surface as warnings.
func (n *Notifier) FromError(op string, err error) Notification {
	kind := apperr.KindOf(err)
	typ := Error
	if kind == apperr.KindConflict {
		typ = Warning
	}

	fields := []zap.Field{zap.String("op", op), zap.String("kind", string(kind)), zap.Error(err)}
	if kind == apperr.KindStorage {
		n.logger.Error("Operation failed", fields...)
	} else {
		n.logger.Warn("Operation rejected", fields...)
	}
	return n.emit(Notification{Type: typ, Message: apperr.Message(err)})
}

func (n *Notifier) emit(note Notification) Notification {
	metrics.IncrementNotification(string(note.Type))
	return note
}
