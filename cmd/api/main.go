package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"user-crud-service/cmd/api/app"
	"user-crud-service/cmd/api/server"
)

func main() {
	ctx, stop := server.WithSignal(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		a.Logger.Error("application exited with error", zap.Error(err))
		stop()
		os.Exit(1)
	}
}
