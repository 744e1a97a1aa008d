// File: cmd/cabinet/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	// Explicitly import provider implementations to ensure their init() functions run and they register themselves
	_ "cabinet/internal/provider"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
