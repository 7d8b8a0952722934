package observability

import (
	"context"

	"github.com/lumenobs/surveysim/internal/logging"
	"github.com/lumenobs/surveysim/timebudget"
)

// AuditLog mirrors every allocation attempt into the structured log, one
// line per attempt. Accepted allocations log at info, rejections at warn.
type AuditLog struct {
	log logging.Logger
}

// NewAuditLog wraps a logger as an allocation Recorder. Hand it a logger
// already annotated with run context if log correlation is wanted.
func NewAuditLog(log logging.Logger) *AuditLog {
	if log == nil {
		log = logging.Noop()
	}
	return &AuditLog{log: log}
}

// RecordAllocation implements timebudget.Recorder.
func (a *AuditLog) RecordAllocation(rec timebudget.Record) {
	if a == nil {
		return
	}
	fields := []logging.Field{
		logging.Float64("elapsed_days", timebudget.InDays(rec.Elapsed)),
		logging.Float64("requested_days", timebudget.InDays(rec.Requested)),
		logging.String("outcome", string(rec.Outcome)),
		logging.String("origin", rec.Origin),
	}
	if rec.Outcome.Accepted() {
		a.log.Info(context.Background(), "alloc", fields...)
		return
	}
	a.log.Warn(context.Background(), "alloc rejected", fields...)
}

// Fanout returns a Recorder that forwards each record to every recorder
// in order. Nil entries are skipped.
func Fanout(recorders ...timebudget.Recorder) timebudget.Recorder {
	return fanout(recorders)
}

type fanout []timebudget.Recorder

func (f fanout) RecordAllocation(rec timebudget.Record) {
	for _, r := range f {
		if r != nil {
			r.RecordAllocation(rec)
		}
	}
}
