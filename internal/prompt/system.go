package prompt

import _ "embed"

// Built-in system prompts sent through the chat API's system role. The
// job-specific detail always travels in the user message; these only set
// model behavior per task type.

//go:embed templates/system_create.md
var SystemCreate string

//go:embed templates/system_verify.md
var SystemVerify string

//go:embed templates/system_edit.md
var SystemEdit string

//go:embed templates/system_test.md
var SystemTest string

//go:embed templates/system_retry.md
var SystemRetry string
