package main

import "fmt"

// Version information, overridable at link time via -ldflags.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func fullVersion() string {
	return fmt.Sprintf("kl3mpipe %s (build: %s, commit: %s)", Version, BuildTime, GitCommit)
}
