// Package prompt reads interactive answers from the operator.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConfirmFunc asks a yes/no question. There is no default answer: anything
// other than an explicit yes is a no.
type ConfirmFunc func(question string) (bool, error)

// Confirm reads from stdin.
func Confirm(question string) (bool, error) {
	return confirm(os.Stdin, os.Stdout, question)
}

func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// Ask reads a single line value, returning the fallback when the operator
// just presses enter.
func Ask(question, fallback string) (string, error) {
	if fallback != "" {
		fmt.Printf("%s [%s]: ", question, fallback)
	} else {
		fmt.Printf("%s: ", question)
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return fallback, nil
	}
	return value, nil
}
