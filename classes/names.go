package classes

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// LoadNames reads a model's class names file, one name per line. CRLF endings and
// blank lines are ignored.
func LoadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open names file")
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimRight(scanner.Text(), "\r"))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read names file")
	}
	return out, nil
}

// VerifyNames checks that a model's class names match the label set position by position.
func VerifyNames(ns []string) error {
	if len(ns) != Count {
		return &ConfigError{Index: len(ns), Reason: fmt.Sprintf("model has %d classes, want %d", len(ns), Count)}
	}
	for i, n := range ns {
		l, err := Parse(n)
		if err != nil {
			return err
		}
		if int(l) != i {
			return &ConfigError{Index: i, Name: n, Reason: fmt.Sprintf("model class %d is %q, want %q", i, n, names[i])}
		}
	}
	return nil
}
