// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/EventHorizon/pkg/ux"
)

// version is stamped by the release build with -ldflags "-X main.version=...".
var version = "v0.0.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command tree and returns the process exit code.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	c.close()
	if err != nil {
		ux.Error(err.Error())
		return 1
	}
	return 0
}
