package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/enterprise/fraud-dashboard/internal/auth"
)

var errEmptyPassword = errors.New("password must not be empty")

// hashPassword reads one password line from in and writes its bcrypt hash,
// suitable for OPERATOR_PASSWORD_HASH, to out
func hashPassword(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errEmptyPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = fmt.Fprintln(out, hash)
	return err
}
