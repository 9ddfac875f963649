package main

import (
	"context"
	"os"

	"github.com/hitoshi/todoctl/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
