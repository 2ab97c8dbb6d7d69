package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// errNotConfirmed is returned when the user declines a mutating operation.
var errNotConfirmed = errors.New("operation not confirmed")

// errNoTerminal is returned when confirmation is needed but stdin is not a
// terminal.
var errNoTerminal = errors.New("confirmation requires an interactive terminal, pass --yes to skip it")

// confirm writes question and reads one line from in. Only the literal
// answer "yes" confirms.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s Type 'yes' to continue: ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return strings.TrimSpace(line) == "yes", nil
}
