package job

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/lucasnoah/worksplit/internal/wserr"
)

func parseJob(t *testing.T, src string) (*Job, error) {
	t.Helper()
	return Parse("test_job", []byte(src), "jobs/test_job.md", 2, zap.NewNop())
}

func mustParse(t *testing.T, src string) *Job {
	t.Helper()
	j, err := parseJob(t, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return j
}

func wantValidationKind(t *testing.T, err error, kind wserr.ValidationKind) {
	t.Helper()
	var verr *wserr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Kind != kind {
		t.Errorf("validation kind = %s, want %s", verr.Kind, kind)
	}
}

func TestParseBasic(t *testing.T) {
	j := mustParse(t, `---
context_files:
  - src/lib.rs
output_dir: src/
output_file: service.rs
---
Create a service.
`)

	if j.ID != "test_job" {
		t.Errorf("ID = %q, want test_job", j.ID)
	}
	if j.Meta.Mode != ModeReplace {
		t.Errorf("Mode = %q, want replace", j.Meta.Mode)
	}
	if !j.Meta.ShouldVerify() {
		t.Error("verify should default to true")
	}
	if j.Meta.IsSequential() {
		t.Error("sequential should default to false")
	}
	if j.Instructions != "Create a service." {
		t.Errorf("Instructions = %q", j.Instructions)
	}
	if got := j.Meta.OutputPath(); got != "src/service.rs" {
		t.Errorf("OutputPath = %q", got)
	}
}

func TestParseMissingFrontMatter(t *testing.T) {
	_, err := parseJob(t, "Just some instructions without front-matter.\n")
	if !errors.Is(err, wserr.ErrMissingFrontMatter) {
		t.Fatalf("expected ErrMissingFrontMatter, got %v", err)
	}
}

func TestParseUnclosedFrontMatter(t *testing.T) {
	_, err := parseJob(t, "---\noutput_dir: src/\noutput_file: a.rs\n")
	if !errors.Is(err, wserr.ErrMissingFrontMatter) {
		t.Fatalf("expected ErrMissingFrontMatter, got %v", err)
	}
}

func TestParseUnknownKeyIgnored(t *testing.T) {
	j := mustParse(t, `---
output_dir: src/
output_file: a.rs
totally_unknown: yes
---
body
`)
	if j.Meta.OutputFile != "a.rs" {
		t.Errorf("OutputFile = %q", j.Meta.OutputFile)
	}
}

func TestParseUnknownMode(t *testing.T) {
	_, err := parseJob(t, `---
output_dir: src/
output_file: a.rs
mode: refactor
---
body
`)
	var perr *wserr.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestValidateEmptyOutputFile(t *testing.T) {
	_, err := parseJob(t, `---
output_dir: src/
output_file: ""
---
body
`)
	wantValidationKind(t, err, wserr.EmptyOutputFile)
}

func TestValidateTooManyContextFiles(t *testing.T) {
	_, err := parseJob(t, `---
context_files: [a.rs, b.rs, c.rs]
output_dir: src/
output_file: out.rs
---
body
`)
	wantValidationKind(t, err, wserr.TooManyContextFiles)
}

func TestValidateEmptyTestFile(t *testing.T) {
	_, err := parseJob(t, `---
output_dir: src/
output_file: out.rs
test_file: ""
---
body
`)
	wantValidationKind(t, err, wserr.EmptyTestFile)
}

func TestValidateEmptyOutputFiles(t *testing.T) {
	_, err := parseJob(t, `---
output_dir: src/
output_file: out.rs
output_files: []
sequential: true
---
body
`)
	wantValidationKind(t, err, wserr.EmptyOutputFiles)
}

func TestValidateEmptyPathInOutputFiles(t *testing.T) {
	_, err := parseJob(t, `---
output_dir: src/
output_file: out.rs
output_files: ["src/main.rs", ""]
sequential: true
---
body
`)
	wantValidationKind(t, err, wserr.EmptyOutputFilePath)
}

func TestValidateEditWithSequential(t *testing.T) {
	_, err := parseJob(t, `---
output_dir: src/
output_file: out.rs
mode: edit
sequential: true
output_files: [src/main.rs]
target_files: [src/main.rs]
---
body
`)
	wantValidationKind(t, err, wserr.EditModeWithSequential)
}

func TestValidateEditEmptyTargets(t *testing.T) {
	_, err := parseJob(t, `---
output_dir: src/
output_file: out.rs
mode: edit
target_files: []
---
body
`)
	wantValidationKind(t, err, wserr.EmptyTargetFiles)
}

func TestValidateSplit(t *testing.T) {
	_, err := parseJob(t, `---
output_dir: src/
output_file: runner.rs
mode: split
output_files: [src/runner.rs]
---
body
`)
	wantValidationKind(t, err, wserr.SplitMissingTargetFile)

	_, err = parseJob(t, `---
output_dir: src/
output_file: runner.rs
mode: split
target_file: src/runner.rs
---
body
`)
	wantValidationKind(t, err, wserr.SplitMissingOutputFiles)

	_, err = parseJob(t, `---
output_dir: src/
output_file: runner.rs
mode: split
target_file: src/runner.rs
output_files: [src/runner_a.rs]
sequential: true
---
body
`)
	wantValidationKind(t, err, wserr.SplitModeWithSequential)
}

func TestValidateUpdateFixtures(t *testing.T) {
	_, err := parseJob(t, `---
output_dir: src/
output_file: out.rs
mode: update_fixtures
target_files: [src/tests.rs]
struct_name: Config
---
body
`)
	wantValidationKind(t, err, wserr.UpdateFixturesMissingNewField)

	_, err = parseJob(t, `---
output_dir: src/
output_file: out.rs
mode: update_fixtures
target_files: [src/tests.rs]
new_field: "verify: true"
---
body
`)
	wantValidationKind(t, err, wserr.UpdateFixturesMissingStructName)

	_, err = parseJob(t, `---
output_dir: src/
output_file: out.rs
mode: update_fixtures
struct_name: Config
new_field: "verify: true"
---
body
`)
	wantValidationKind(t, err, wserr.UpdateFixturesMissingTargetFiles)
}

func TestSequentialRequiresOutputFiles(t *testing.T) {
	_, err := parseJob(t, `---
output_dir: src/
output_file: default.rs
sequential: true
---
body
`)
	wantValidationKind(t, err, wserr.SequentialWithoutOutputs)
}

func TestOutputFilesFallback(t *testing.T) {
	j := mustParse(t, `---
output_dir: src/
output_file: default.rs
---
body
`)
	if j.Meta.IsSequential() {
		t.Error("sequential should be off by default")
	}
	files := j.Meta.GetOutputFiles()
	if len(files) != 1 || files[0] != "src/default.rs" {
		t.Errorf("GetOutputFiles = %v", files)
	}
}

func TestSequentialWithOutputFiles(t *testing.T) {
	j := mustParse(t, `---
output_dir: src/
output_file: default.rs
sequential: true
output_files:
  - src/main.rs
  - src/lib.rs
  - src/models.rs
---
body
`)
	if !j.Meta.IsSequential() {
		t.Error("expected sequential mode")
	}
	files := j.Meta.GetOutputFiles()
	if len(files) != 3 || files[0] != "src/main.rs" || files[2] != "src/models.rs" {
		t.Errorf("GetOutputFiles = %v", files)
	}
}

func TestTargetFilesFallback(t *testing.T) {
	j := mustParse(t, `---
output_dir: src/services
output_file: user_service.rs
mode: edit
---
body
`)
	targets := j.Meta.GetTargetFiles()
	if len(targets) != 1 || targets[0] != "src/services/user_service.rs" {
		t.Errorf("GetTargetFiles = %v", targets)
	}
}

func TestTDDHelpers(t *testing.T) {
	j := mustParse(t, `---
output_dir: src/services
output_file: user_service.rs
test_file: user_service_test.rs
---
body
`)
	if !j.Meta.IsTDD() {
		t.Error("expected TDD enabled")
	}
	if got := j.Meta.TestPath(); got != "src/services/user_service_test.rs" {
		t.Errorf("TestPath = %q", got)
	}
}

func TestDependsOn(t *testing.T) {
	j := mustParse(t, `---
output_dir: src/
output_file: b.rs
depends_on: [job_a, job_c]
---
body
`)
	if len(j.Meta.DependsOn) != 2 || j.Meta.DependsOn[0] != "job_a" {
		t.Errorf("DependsOn = %v", j.Meta.DependsOn)
	}
}

func TestVerifyFalse(t *testing.T) {
	j := mustParse(t, `---
output_dir: src/
output_file: a.rs
verify: false
---
body
`)
	if j.Meta.ShouldVerify() {
		t.Error("verify: false should disable verification")
	}
}
