// Package job defines the job model parsed from job files and its
// metadata invariants.
package job

import (
	"fmt"
	"path/filepath"

	"github.com/lucasnoah/worksplit/internal/wserr"
)

// Mode selects how a job materializes its output.
type Mode string

const (
	// ModeReplace generates full files (the default).
	ModeReplace Mode = "replace"
	// ModeEdit applies surgical FIND/REPLACE edits to existing files.
	ModeEdit Mode = "edit"
	// ModeSplit breaks a large file into modules.
	ModeSplit Mode = "split"
	// ModeReplacePattern applies batch AFTER/INSERT insertions.
	ModeReplacePattern Mode = "replace_pattern"
	// ModeUpdateFixtures inserts a field into struct literals.
	ModeUpdateFixtures Mode = "update_fixtures"
)

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeReplace, ModeEdit, ModeSplit, ModeReplacePattern, ModeUpdateFixtures:
		return true
	}
	return false
}

// Metadata is the front-matter of a job file. Immutable after parse.
type Metadata struct {
	// ContextFiles are repo-relative files included in the prompt.
	ContextFiles []string `yaml:"context_files"`
	// OutputDir is the base directory for OutputFile.
	OutputDir string `yaml:"output_dir"`
	// OutputFile is the primary output, relative to OutputDir.
	OutputFile string `yaml:"output_file"`
	// OutputFiles lists repo-relative outputs for sequential/split mode.
	OutputFiles []string `yaml:"output_files"`
	// TargetFiles are the files edit-family modes modify.
	TargetFiles []string `yaml:"target_files"`
	// TargetFile is the oversized source file for split mode.
	TargetFile string `yaml:"target_file"`
	// TestFile enables the TDD workflow when set.
	TestFile string `yaml:"test_file"`
	// Mode defaults to replace.
	Mode Mode `yaml:"mode"`
	// Sequential enables one LLM call per output file.
	Sequential bool `yaml:"sequential"`
	// DependsOn lists job ids that must complete first.
	DependsOn []string `yaml:"depends_on"`
	// StructName names the struct literal for update_fixtures.
	StructName string `yaml:"struct_name"`
	// NewField is the field text inserted by update_fixtures.
	NewField string `yaml:"new_field"`
	// Verify controls the verification phase; defaults to true.
	Verify *bool `yaml:"verify"`

	// Presence markers set by the parser so an explicitly-empty list can
	// be rejected while an absent one falls back to defaults.
	testFileSet    bool
	outputFilesSet bool
	targetFilesSet bool
	targetFileSet  bool
}

// Job is a parsed job: metadata plus the markdown instruction body.
type Job struct {
	// ID is the file name stem.
	ID string
	// Meta is the parsed front-matter.
	Meta Metadata
	// Instructions is the markdown body below the front-matter.
	Instructions string
	// FilePath is where the job was read from.
	FilePath string
}

// OutputPath joins output_dir and output_file.
func (m *Metadata) OutputPath() string {
	return filepath.Join(m.OutputDir, m.OutputFile)
}

// IsTDD reports whether the TDD workflow applies.
func (m *Metadata) IsTDD() bool { return m.TestFile != "" }

// TestPath returns the TDD test path, or "" when TDD is disabled.
func (m *Metadata) TestPath() string {
	if m.TestFile == "" {
		return ""
	}
	return filepath.Join(m.OutputDir, m.TestFile)
}

// IsSequential reports whether sequential multi-file generation applies.
// The flag only takes effect when output_files is present.
func (m *Metadata) IsSequential() bool {
	return m.Sequential && len(m.OutputFiles) > 0
}

// GetOutputFiles returns the declared output list, falling back to the
// primary output path.
func (m *Metadata) GetOutputFiles() []string {
	if len(m.OutputFiles) > 0 {
		out := make([]string, len(m.OutputFiles))
		copy(out, m.OutputFiles)
		return out
	}
	return []string{m.OutputPath()}
}

// GetTargetFiles returns the edit targets, falling back to the primary
// output path.
func (m *Metadata) GetTargetFiles() []string {
	if len(m.TargetFiles) > 0 {
		out := make([]string, len(m.TargetFiles))
		copy(out, m.TargetFiles)
		return out
	}
	return []string{m.OutputPath()}
}

// ShouldVerify reports whether the verification phase runs.
func (m *Metadata) ShouldVerify() bool {
	return m.Verify == nil || *m.Verify
}

// Validate enforces the metadata invariants.
func (m *Metadata) Validate(maxContextFiles int) error {
	if len(m.ContextFiles) > maxContextFiles {
		return wserr.NewValidation(wserr.TooManyContextFiles,
			"too many context files: %d (max: %d)", len(m.ContextFiles), maxContextFiles)
	}
	if m.OutputFile == "" {
		return wserr.NewValidation(wserr.EmptyOutputFile, "output file cannot be empty")
	}
	if m.TestFile == "" && m.testFileSet {
		return wserr.NewValidation(wserr.EmptyTestFile, "test file name cannot be empty")
	}
	if m.outputFilesSet {
		if len(m.OutputFiles) == 0 {
			return wserr.NewValidation(wserr.EmptyOutputFiles, "output_files list cannot be empty")
		}
		for _, f := range m.OutputFiles {
			if f == "" {
				return wserr.NewValidation(wserr.EmptyOutputFilePath, "output_files contains an empty path")
			}
		}
	}
	// Edit and split have their own sequential-incompatibility checks
	// below; everywhere else the flag demands an output list.
	if m.Sequential && len(m.OutputFiles) == 0 &&
		m.Mode != ModeEdit && m.Mode != ModeSplit {
		return wserr.NewValidation(wserr.SequentialWithoutOutputs,
			"sequential mode requires output_files")
	}

	switch m.Mode {
	case ModeEdit:
		if m.targetFilesSet {
			if len(m.TargetFiles) == 0 {
				return wserr.NewValidation(wserr.EmptyTargetFiles,
					"target_files list cannot be empty in edit mode")
			}
			for _, f := range m.TargetFiles {
				if f == "" {
					return wserr.NewValidation(wserr.EmptyTargetFilePath,
						"target_files contains an empty path")
				}
			}
		}
		if m.Sequential {
			return wserr.NewValidation(wserr.EditModeWithSequential,
				"edit mode cannot be combined with sequential mode")
		}
	case ModeSplit:
		if m.TargetFile == "" {
			if m.targetFileSet {
				return wserr.NewValidation(wserr.SplitEmptyTargetFile,
					"split mode target_file cannot be empty")
			}
			return wserr.NewValidation(wserr.SplitMissingTargetFile,
				"split mode requires target_file")
		}
		if len(m.OutputFiles) == 0 {
			return wserr.NewValidation(wserr.SplitMissingOutputFiles,
				"split mode requires output_files")
		}
		if m.Sequential {
			return wserr.NewValidation(wserr.SplitModeWithSequential,
				"split mode cannot be combined with sequential mode")
		}
	case ModeReplacePattern:
		if len(m.TargetFiles) == 0 {
			return wserr.NewValidation(wserr.ReplacePatternMissingTargetFiles,
				"replace_pattern mode requires target_files")
		}
	case ModeUpdateFixtures:
		if len(m.TargetFiles) == 0 {
			return wserr.NewValidation(wserr.UpdateFixturesMissingTargetFiles,
				"update_fixtures mode requires target_files")
		}
		if m.StructName == "" {
			return wserr.NewValidation(wserr.UpdateFixturesMissingStructName,
				"update_fixtures mode requires struct_name")
		}
		if m.NewField == "" {
			return wserr.NewValidation(wserr.UpdateFixturesMissingNewField,
				"update_fixtures mode requires new_field")
		}
	}

	return nil
}

// String implements fmt.Stringer for log output.
func (j *Job) String() string {
	return fmt.Sprintf("%s [%s]", j.ID, j.Meta.Mode)
}
