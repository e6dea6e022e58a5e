// Package main probes a service's gRPC health endpoint and exits non-zero
// unless it reports SERVING.
package main

import (
	"context"
	"flag"
	"os"

	healthprobecmd "github.com/louisbranch/docker-mastery/internal/cmd/healthprobe"
	"github.com/louisbranch/docker-mastery/internal/platform/config"
)

func main() {
	cfg, err := healthprobecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.ExitUsagef("parse flags: %v", err)
	}
	if err := healthprobecmd.Run(context.Background(), cfg, os.Stdout, nil); err != nil {
		config.Exitf("health probe: not serving: %v", err)
	}
}
