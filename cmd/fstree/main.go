package main

import (
	"fmt"
	"os"

	"github.com/fstreehq/fstree/cmd/fstree/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, lowercaseFirst(err.Error()))
		os.Exit(1)
	}
}

func lowercaseFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
