package main

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"

	"github.com/alea-labs/kl3mpipe/internal/config"
)

// printBanner displays the startup banner, matching the teacher's
// banner.New()/StyleDouble convention.
func printBanner(subcommand string, cfg *config.Config, logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("KL3MPIPE")
	b.PrintCenteredText("Training Data Pipeline")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Command", subcommand, 15)
	b.PrintKeyValue("Version", Version, 15)
	b.PrintKeyValue("Environment", cfg.Environment, 15)
	b.PrintKeyValue("Bucket", cfg.ObjectStore.Bucket, 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("command", subcommand).
		Str("version", Version).
		Str("environment", cfg.Environment).
		Msg("kl3mpipe starting")
}
