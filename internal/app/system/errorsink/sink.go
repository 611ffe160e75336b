// Package errorsink records failed operations for operators. Writes are
// fire-and-forget: the caller never waits on them and never sees their
// errors.
package errorsink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dalemusser/schoolhub/internal/app/system/logctx"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"go.uber.org/zap"
)

// Modes accepted by the error_log setting.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// Writer persists one entry. *errorlog.Store satisfies it.
type Writer interface {
	Insert(ctx context.Context, entry models.ErrorLog) (models.ErrorLog, error)
}

// Entry describes a failed operation. ParameterInput is serialized to JSON.
type Entry struct {
	Stack          string
	FunctionName   string
	Path           string
	ParameterInput any
}

// Sink fans entries out to zap and/or a Writer.
type Sink struct {
	w       Writer
	log     *zap.Logger
	mode    string
	timeout time.Duration
	wg      sync.WaitGroup
}

// New builds a Sink. An unknown mode is treated as "all"; a nil writer
// disables the database destination.
func New(w Writer, log *zap.Logger, mode string, timeout time.Duration) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	switch mode {
	case ModeAll, ModeDB, ModeLog, ModeOff:
	default:
		mode = ModeAll
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Sink{w: w, log: log, mode: mode, timeout: timeout}
}

// Log records e in the background. Safe on a nil Sink.
func (s *Sink) Log(ctx context.Context, e Entry) {
	if s == nil || s.mode == ModeOff {
		return
	}

	doc := models.ErrorLog{
		ErrorStack:     e.Stack,
		FunctionName:   e.FunctionName,
		Path:           e.Path,
		ParameterInput: encodeInput(e.ParameterInput),
		CreatedAt:      time.Now().UTC(),
	}
	log := logctx.Logger(ctx, s.log)

	if s.mode == ModeAll || s.mode == ModeLog {
		log.Error("operation failed",
			zap.String("function", doc.FunctionName),
			zap.String("path", doc.Path),
			zap.String("input", doc.ParameterInput),
			zap.String("stack", doc.ErrorStack),
		)
	}
	if (s.mode == ModeAll || s.mode == ModeDB) && s.w != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
			defer cancel()
			if _, err := s.w.Insert(wctx, doc); err != nil {
				log.Warn("error log write failed",
					zap.String("function", doc.FunctionName), zap.Error(err))
			}
		}()
	}
}

// Wait blocks until every pending write has finished. Called on shutdown.
func (s *Sink) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

func encodeInput(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return `"<unserializable>"`
	}
	return string(b)
}
