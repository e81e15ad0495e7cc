// Package prompt assembles the deterministic prompt texts sent to the
// generation service. Prompts are composed of bracketed sections; each
// file is presented as a path heading followed by a fenced block.
package prompt

import (
	"fmt"
	"strings"
)

// File pairs a repo-relative path with its content for prompt sections.
type File struct {
	Path    string
	Content string
}

func writeFileSection(b *strings.Builder, f File) {
	fmt.Fprintf(b, "### File: %s\n", f.Path)
	b.WriteString("```\n")
	b.WriteString(f.Content)
	if !strings.HasSuffix(f.Content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("```\n\n")
}

func writeContext(b *strings.Builder, header string, files []File) {
	if len(files) == 0 {
		return
	}
	b.WriteString(header)
	b.WriteString("\n")
	for _, f := range files {
		writeFileSection(b, f)
	}
}

// Creation assembles the standard generation prompt.
func Creation(systemPrompt string, contextFiles []File, instructions, outputPath string) string {
	var b strings.Builder

	b.WriteString("[SYSTEM]\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	writeContext(&b, "[CONTEXT]", contextFiles)

	b.WriteString("[INSTRUCTIONS]\n")
	b.WriteString(instructions)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Output to: %s\n", outputPath)

	return b.String()
}

// SequentialCreation assembles the per-file prompt for sequential mode.
// Previously generated files ride along as reference; remaining files
// are listed so interfaces can anticipate them.
func SequentialCreation(systemPrompt string, contextFiles, previouslyGenerated []File,
	instructions, currentOutputPath string, remainingFiles []string) string {
	var b strings.Builder

	b.WriteString("[SYSTEM]\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	writeContext(&b, "[CONTEXT]", contextFiles)

	if len(previouslyGenerated) > 0 {
		b.WriteString("[PREVIOUSLY GENERATED IN THIS JOB]\n")
		b.WriteString("These files were already generated as part of this same task. ")
		b.WriteString("Use them as reference for consistency.\n\n")
		for _, f := range previouslyGenerated {
			writeFileSection(&b, f)
		}
	}

	b.WriteString("[INSTRUCTIONS]\n")
	b.WriteString(instructions)
	b.WriteString("\n\n")

	b.WriteString("[CURRENT OUTPUT FILE]\n")
	fmt.Fprintf(&b, "Generate: %s\n\n", currentOutputPath)

	if len(remainingFiles) > 0 {
		b.WriteString("[REMAINING FILES]\n")
		b.WriteString("These files will be generated after this one:\n")
		for _, p := range remainingFiles {
			fmt.Fprintf(&b, "  - %s\n", p)
		}
		b.WriteString("\nConsider their requirements when designing interfaces.\n")
	}

	return b.String()
}

// Verification assembles the verification prompt over generated files.
func Verification(systemPrompt string, contextFiles, generatedFiles []File, instructions string) string {
	var b strings.Builder

	b.WriteString("[SYSTEM]\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	writeContext(&b, "[CONTEXT]", contextFiles)

	b.WriteString("[GENERATED OUTPUT]\n")
	for _, f := range generatedFiles {
		writeFileSection(&b, f)
	}

	b.WriteString("[ORIGINAL INSTRUCTIONS]\n")
	b.WriteString(instructions)
	b.WriteByte('\n')

	return b.String()
}

// Test assembles the TDD test-generation prompt.
func Test(systemPrompt string, contextFiles []File, instructions, testPath string) string {
	var b strings.Builder

	b.WriteString("[SYSTEM]\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	writeContext(&b, "[CONTEXT]", contextFiles)

	b.WriteString("[REQUIREMENTS]\n")
	b.WriteString(instructions)
	b.WriteString("\n\n")

	b.WriteString("[TEST OUTPUT]\n")
	fmt.Fprintf(&b, "Generate tests for: %s\n\n", testPath)
	b.WriteString("The implementation does not exist yet. Generate tests that will:\n")
	b.WriteString("1. Verify the requirements are met when implementation exists\n")
	b.WriteString("2. Cover edge cases and error conditions\n")
	b.WriteString("3. Be immediately runnable once implementation is created\n")

	return b.String()
}

// Retry assembles the retry-with-feedback prompt: original context, the
// code that failed, and the verifier's message.
func Retry(systemPrompt string, contextFiles []File, instructions string,
	previousOutputs []File, verificationError string) string {
	var b strings.Builder

	b.WriteString("[SYSTEM]\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	writeContext(&b, "[CONTEXT]", contextFiles)

	b.WriteString("[PREVIOUS ATTEMPT]\n")
	for _, f := range previousOutputs {
		writeFileSection(&b, f)
	}

	b.WriteString("[VERIFICATION FEEDBACK]\n")
	b.WriteString("The previous attempt failed verification with the following feedback:\n")
	b.WriteString(verificationError)
	b.WriteString("\n\n")

	b.WriteString("[INSTRUCTIONS]\n")
	b.WriteString(instructions)
	b.WriteString("\n\n")

	if len(previousOutputs) == 1 {
		fmt.Fprintf(&b, "Output to: %s\n\n", previousOutputs[0].Path)
	} else {
		b.WriteString("Output files:\n")
		for _, f := range previousOutputs {
			fmt.Fprintf(&b, "  - %s\n", f.Path)
		}
		b.WriteByte('\n')
	}
	b.WriteString("Please fix the issues mentioned in the verification feedback and generate improved code.\n")

	return b.String()
}

// Edit assembles the edit-mode prompt. Target files are shown with line
// numbers every ten lines so FIND hints can reference locations.
func Edit(systemPrompt string, targetFiles, contextFiles []File, instructions string) string {
	var b strings.Builder

	b.WriteString("[SYSTEM]\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	b.WriteString("[EDIT MODE]\n")
	b.WriteString("You are making surgical edits to existing files. ")
	b.WriteString("Use the following format for each edit:\n\n")
	b.WriteString("FILE: path/to/file.rs\n")
	b.WriteString("FIND:\n<exact text to find>\n")
	b.WriteString("REPLACE:\n<replacement text>\n")
	b.WriteString("END\n\n")
	b.WriteString("Important:\n")
	b.WriteString("- FIND text must match exactly (including whitespace)\n")
	b.WriteString("- Include enough context in FIND to be unique\n")
	b.WriteString("- Multiple edits can be made to the same file\n")
	b.WriteString("- Use line number hints like 'FIND (near line 50):' to reference locations\n\n")

	b.WriteString("[TARGET FILES]\n")
	b.WriteString("These are the files you will be editing (line numbers shown every 10 lines):\n\n")
	for _, f := range targetFiles {
		lines := strings.Split(strings.TrimSuffix(f.Content, "\n"), "\n")
		fmt.Fprintf(&b, "### File: %s (%d lines)\n", f.Path, len(lines))
		b.WriteString("```\n")
		for i, line := range lines {
			num := i + 1
			if num == 1 || num%10 == 0 {
				fmt.Fprintf(&b, "[Line %4d] ", num)
			} else {
				b.WriteString("            ")
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteString("```\n\n")
	}

	writeContext(&b, "[CONTEXT]", contextFiles)

	b.WriteString("[INSTRUCTIONS]\n")
	b.WriteString(instructions)
	b.WriteString("\n\n")

	return b.String()
}

// ReplacePattern assembles the replace-pattern prompt over target files.
func ReplacePattern(systemPrompt string, targetFiles, contextFiles []File, instructions string) string {
	var b strings.Builder

	b.WriteString("[SYSTEM]\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	b.WriteString("[REPLACE PATTERN MODE]\n")
	b.WriteString("You are inserting text after recurring patterns. ")
	b.WriteString("Use the following format:\n\n")
	b.WriteString("SCOPE: <optional enclosing marker>\n")
	b.WriteString("AFTER:\n<pattern to find>\n")
	b.WriteString("INSERT:\n<text to insert after each occurrence>\n\n")

	writeContext(&b, "[TARGET FILES]", targetFiles)
	writeContext(&b, "[CONTEXT]", contextFiles)

	b.WriteString("[INSTRUCTIONS]\n")
	b.WriteString(instructions)
	b.WriteString("\n\n")

	return b.String()
}

// SequentialSplit assembles the per-file prompt for split mode: the
// oversized target rides along as primary context for every call.
func SequentialSplit(systemPrompt string, targetFile File, contextFiles, previouslyGenerated []File,
	instructions, currentOutputPath string, remainingFiles []string) string {
	var b strings.Builder

	b.WriteString("[SYSTEM]\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	b.WriteString("[TARGET FILE TO SPLIT]\n")
	fmt.Fprintf(&b, "### File: %s (original file being split)\n", targetFile.Path)
	b.WriteString("```\n")
	b.WriteString(targetFile.Content)
	if !strings.HasSuffix(targetFile.Content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("```\n\n")

	writeContext(&b, "[ADDITIONAL CONTEXT]", contextFiles)

	if len(previouslyGenerated) > 0 {
		b.WriteString("[ALREADY GENERATED IN THIS SPLIT]\n")
		b.WriteString("These files were already generated from the target file. ")
		b.WriteString("Ensure consistency and avoid duplicating code that's already in these files.\n\n")
		for _, f := range previouslyGenerated {
			writeFileSection(&b, f)
		}
	}

	b.WriteString("[INSTRUCTIONS]\n")
	b.WriteString(instructions)
	b.WriteString("\n\n")

	b.WriteString("[CURRENT OUTPUT FILE]\n")
	fmt.Fprintf(&b, "Generate ONLY this file: %s\n", currentOutputPath)
	b.WriteString("Extract the appropriate code from the target file into this module.\n\n")

	if len(remainingFiles) > 0 {
		b.WriteString("[REMAINING FILES]\n")
		b.WriteString("These files will be generated after this one:\n")
		for _, p := range remainingFiles {
			fmt.Fprintf(&b, "  - %s\n", p)
		}
		b.WriteString("\nDo NOT include code that belongs in these files. Focus only on the current file.\n")
	}

	b.WriteString("\nOutput the file using the ~~~worksplit:path/to/file delimiter.\n")

	return b.String()
}
