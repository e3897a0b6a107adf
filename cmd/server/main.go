package main

import (
	"github.com/podgraph/backend/internal/server"
	"github.com/podgraph/backend/internal/util"
	"github.com/podgraph/backend/pkg/logger"
	"github.com/podgraph/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
