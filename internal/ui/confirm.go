package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Confirm prompts the user on the terminal with a yes/no question.
func Confirm(prompt string) bool {
	return ConfirmFrom(os.Stdin, os.Stdout, prompt)
}

// ConfirmFrom asks prompt on out and reads the answer from in. Only "y" and
// "yes" count as yes.
func ConfirmFrom(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", StyleWarning.Render(prompt))
	line, _ := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}
