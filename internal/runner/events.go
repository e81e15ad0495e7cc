package runner

import (
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/db"
)

// eventRecorder mirrors run activity into the event log. A nil database
// turns every call into a no-op; recording failures are logged and
// swallowed, the pipeline never fails because of its audit trail.
type eventRecorder struct {
	db  *db.DB
	log *zap.Logger
}

func (e eventRecorder) JobEvent(runID, jobID, event, status, detail string) {
	if e.db == nil {
		return
	}
	if err := e.db.RecordJobEvent(runID, jobID, event, status, detail); err != nil {
		e.log.Warn("record job event failed", zap.Error(err))
	}
}

func (e eventRecorder) LLMCall(runID, jobID, phase string, d time.Duration, promptChars, replyChars int, ok bool) {
	if e.db == nil {
		return
	}
	if err := e.db.RecordLLMCall(runID, jobID, phase, d, promptChars, replyChars, ok); err != nil {
		e.log.Warn("record llm call failed", zap.Error(err))
	}
}

func (e eventRecorder) BuildRun(runID, command string, exitCode int, d time.Duration) {
	if e.db == nil {
		return
	}
	if err := e.db.RecordBuildRun(runID, command, exitCode, d); err != nil {
		e.log.Warn("record build run failed", zap.Error(err))
	}
}
