package main

import (
	"context"

	"europarl-collector/cmd/collector-cli/commands"
	"europarl-collector/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	telemetry.SetupFromEnv(context.Background(), "collector-cli")
	commands.ExecuteContext(context.Background())
}
