// File: internal/flags/flags.go
package flags

// Centralized definitions for CLI flags used across the application

const (
	// Recursive flags make listings descend into every sub-directory
	Recursive      = "recursive"
	RecursiveShort = "r"

	// OnExisting flags pick the existing-item policy for writes (overwrite, skip, throw)
	OnExisting = "on-existing"

	// DeleteSource flags make migrate remove each source item after its copy succeeded
	DeleteSource = "delete-source"

	// Concurrency flags bound how many transfers a batch runs at once
	Concurrency      = "concurrency"
	ConcurrencyShort = "c"

	// Output flags select the rendering (table or yaml)
	Output      = "output"
	OutputShort = "o"

	// Progress flags toggle the interactive transfer progress bar
	Progress = "progress"

	// Force flags are used to bypass interactive confirmation prompts for destructive operations
	Force      = "force"
	ForceShort = "f"

	// Debug flags are used to enable verbose logging
	Debug      = "debug"
	DebugShort = "d"
)
