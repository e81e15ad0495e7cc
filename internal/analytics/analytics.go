// Package analytics aggregates the run-event log for the stats command.
package analytics

import (
	"fmt"

	"github.com/lucasnoah/worksplit/internal/db"
)

// JobStats summarizes recorded activity for one job.
type JobStats struct {
	JobID      string
	Events     int
	LLMCalls   int
	MeanCallMs int
	LastStatus string
}

// PhaseStats summarizes LLM latency for one pipeline phase.
type PhaseStats struct {
	Phase      string
	Calls      int
	MeanMs     int
	FailedRate float64
}

// Report is the full stats output.
type Report struct {
	Jobs       []JobStats
	Phases     []PhaseStats
	BuildRuns  int
	BuildFails int
}

// BuildReport queries the event log.
func BuildReport(d *db.DB) (*Report, error) {
	r := &Report{}

	rows, err := d.Conn().Query(`
		SELECT e.job_id,
		       COUNT(*),
		       COALESCE((SELECT COUNT(*) FROM llm_calls c WHERE c.job_id = e.job_id), 0),
		       COALESCE((SELECT CAST(AVG(duration_ms) AS INTEGER) FROM llm_calls c WHERE c.job_id = e.job_id), 0),
		       COALESCE((SELECT status FROM job_events l WHERE l.job_id = e.job_id ORDER BY l.id DESC LIMIT 1), '')
		FROM job_events e
		GROUP BY e.job_id
		ORDER BY e.job_id`)
	if err != nil {
		return nil, fmt.Errorf("query job stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var js JobStats
		if err := rows.Scan(&js.JobID, &js.Events, &js.LLMCalls, &js.MeanCallMs, &js.LastStatus); err != nil {
			return nil, err
		}
		r.Jobs = append(r.Jobs, js)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	phaseRows, err := d.Conn().Query(`
		SELECT phase,
		       COUNT(*),
		       CAST(AVG(duration_ms) AS INTEGER),
		       1.0 - AVG(CASE WHEN ok THEN 1.0 ELSE 0.0 END)
		FROM llm_calls
		GROUP BY phase
		ORDER BY phase`)
	if err != nil {
		return nil, fmt.Errorf("query phase stats: %w", err)
	}
	defer phaseRows.Close()
	for phaseRows.Next() {
		var ps PhaseStats
		if err := phaseRows.Scan(&ps.Phase, &ps.Calls, &ps.MeanMs, &ps.FailedRate); err != nil {
			return nil, err
		}
		r.Phases = append(r.Phases, ps)
	}
	if err := phaseRows.Err(); err != nil {
		return nil, err
	}

	row := d.Conn().QueryRow(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN exit_code != 0 THEN 1 ELSE 0 END), 0) FROM build_runs`)
	if err := row.Scan(&r.BuildRuns, &r.BuildFails); err != nil {
		return nil, err
	}

	return r, nil
}
