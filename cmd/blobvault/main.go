package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	a := newApp()
	if err := execute(context.Background(), a, newRootCommand(a)); err != nil {
		fmt.Fprintln(os.Stderr, failure("Error:"), err)
		os.Exit(1)
	}
}
