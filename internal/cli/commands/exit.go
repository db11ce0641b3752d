package commands

// Exit codes for the audit command. Callers (CI pipelines) branch on them.
const (
	// ExitOK means no risks were found.
	ExitOK = 0
	// ExitInternal means the run itself failed.
	ExitInternal = 1
	// ExitWarnings means only low/medium findings were emitted.
	ExitWarnings = 2
	// ExitHighRisk means at least one high-severity finding was emitted.
	ExitHighRisk = 3
	// ExitConfig means the run configuration referenced a column absent
	// from the schema; raised before any detector runs.
	ExitConfig = 4
)

// ExitError carries a process exit code out of a RunE function.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }
