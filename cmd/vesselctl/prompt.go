package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readSecret returns the password from file, from $VESSELCTL_PASSWORD, or
// from an echo-free terminal prompt, in that order. File "-" forces the
// prompt.
func readSecret(e *env, file, prompt string) (string, error) {
	if file != "" && file != "-" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	if v := os.Getenv("VESSELCTL_PASSWORD"); v != "" && file == "" {
		return v, nil
	}

	if f, ok := interactive(e); ok {
		fmt.Fprint(e.errOut, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(e.errOut)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	// Piped input: first line.
	line, err := bufio.NewReader(e.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", usageErr("no password given (use --password-file or a terminal)")
	}
	return line, nil
}

func interactive(e *env) (*os.File, bool) {
	f, ok := e.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, false
	}
	return f, true
}
