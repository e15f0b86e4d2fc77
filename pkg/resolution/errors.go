package resolution

import "fmt"

// ConfigurationError indicates invalid engine configuration, e.g. a review
// threshold above the auto-merge threshold. It fails the run at startup,
// before any candidate generation.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid resolution configuration: %s", e.Reason)
}
