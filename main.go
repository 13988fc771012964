package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jingnanl/infant-guard/cmd"
	"github.com/jingnanl/infant-guard/internal/buildinfo"
)

// Set through -ldflags at build time.
var (
	version   = "dev"
	buildDate = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	info := buildinfo.NewContext(version, buildDate)
	err := cmd.RootCommand(info).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
