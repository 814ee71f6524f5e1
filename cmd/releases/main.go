package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		renderError(os.Stderr, err)
		os.Exit(1)
	}
}
