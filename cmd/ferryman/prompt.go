package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// secureWipe overwrites sensitive bytes once the caller is done with them.
func secureWipe(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// askPassword reads a password from the terminal without echoing it. The
// buffer-based read copes with very long pasted secrets.
func askPassword() ([]byte, error) {
	fmt.Fprint(os.Stderr, "Enter password: ")

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("set terminal raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	var password []byte
	buffer := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(buffer)
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		if n > 0 && (buffer[n-1] == '\r' || buffer[n-1] == '\n') {
			password = append(password, buffer[:n-1]...)
			break
		}
		password = append(password, buffer[:n]...)
		if len(password) > 65536 {
			break
		}
	}

	fmt.Fprintln(os.Stderr)
	return password, nil
}
