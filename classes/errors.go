package classes

import (
	"fmt"
	"strings"
)

// ConfigError reports a detection whose class cannot be resolved to a label or a
// color: the model and the label set disagree.
type ConfigError struct {
	Index  int
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	subject := fmt.Sprintf("class index %d", e.Index)
	if e.Name != "" {
		subject = fmt.Sprintf("class %q", e.Name)
	}
	return fmt.Sprintf("configuration error: %s: %s (labels: %s)", subject, e.Reason, strings.Join(names[:], ", "))
}
