// Package secret abstracts interactive credential input so automated runs
// can inject fixed values instead of blocking on a terminal.
package secret

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// Provider supplies one named secret value.
type Provider interface {
	Secret(prompt string) ([]byte, error)
}

// Terminal prompts on the controlling terminal with echo disabled and
// requires the value to be typed twice.
type Terminal struct{}

var _ Provider = Terminal{}

func (Terminal) Secret(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal, cannot prompt for %s", prompt)
	}

	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", prompt, err)
	}
	if len(first) == 0 {
		return nil, fmt.Errorf("%s must not be empty", prompt)
	}

	fmt.Fprintf(os.Stderr, "%s (again): ", prompt)
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", prompt, err)
	}
	if string(first) != string(second) {
		return nil, fmt.Errorf("%s entries do not match", prompt)
	}
	return first, nil
}

// Static returns a fixed value for every prompt, for tests and unattended
// runs.
type Static []byte

var _ Provider = Static(nil)

func (s Static) Secret(string) ([]byte, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("static secret is empty")
	}
	return []byte(s), nil
}
