package analytics

import (
	"testing"
	"time"

	"github.com/lucasnoah/worksplit/internal/db"
)

func TestBuildReport(t *testing.T) {
	d, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	d.RecordJobEvent("run-1", "alpha", "transition", "pending_work", "")
	d.RecordJobEvent("run-1", "alpha", "finalize", "pass", "")
	d.RecordLLMCall("run-1", "alpha", "generate", 2*time.Second, 1000, 400, true)
	d.RecordLLMCall("run-1", "alpha", "verify", 1*time.Second, 800, 10, true)
	d.RecordLLMCall("run-1", "beta", "generate", 4*time.Second, 2000, 0, false)
	d.RecordJobEvent("run-1", "beta", "finalize", "fail", "llm error")
	d.RecordBuildRun("run-1", "cargo build", 0, 5*time.Second)
	d.RecordBuildRun("run-1", "cargo test", 1, 9*time.Second)

	r, err := BuildReport(d)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}

	if len(r.Jobs) != 2 {
		t.Fatalf("jobs = %+v", r.Jobs)
	}
	alpha := r.Jobs[0]
	if alpha.JobID != "alpha" || alpha.Events != 2 || alpha.LLMCalls != 2 {
		t.Errorf("alpha = %+v", alpha)
	}
	if alpha.MeanCallMs != 1500 {
		t.Errorf("alpha mean = %d", alpha.MeanCallMs)
	}
	if alpha.LastStatus != "pass" {
		t.Errorf("alpha last = %q", alpha.LastStatus)
	}

	var gen PhaseStats
	for _, ps := range r.Phases {
		if ps.Phase == "generate" {
			gen = ps
		}
	}
	if gen.Calls != 2 {
		t.Errorf("generate = %+v", gen)
	}
	if gen.FailedRate < 0.49 || gen.FailedRate > 0.51 {
		t.Errorf("generate failed rate = %f", gen.FailedRate)
	}

	if r.BuildRuns != 2 || r.BuildFails != 1 {
		t.Errorf("builds = %d/%d", r.BuildRuns, r.BuildFails)
	}
}

func TestBuildReportEmpty(t *testing.T) {
	d, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	r, err := BuildReport(d)
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if len(r.Jobs) != 0 || r.BuildRuns != 0 {
		t.Errorf("report = %+v", r)
	}
}
