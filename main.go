package main

import (
	"os"

	"github.com/charmbracelet/log"

	"roleman/cmd"
)

func main() {
	configureLogging()
	cmd.Execute()
}

// configureLogging keeps stdout script-safe: logs go to stderr and stay off
// unless ROLEMAN_LOG asks for them.
func configureLogging() {
	log.SetOutput(os.Stderr)
	level := os.Getenv("ROLEMAN_LOG")
	if level == "" {
		log.SetLevel(log.ErrorLevel)
		return
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.SetLevel(log.InfoLevel)
		log.Warn("unknown ROLEMAN_LOG level", "value", level)
		return
	}
	log.SetLevel(parsed)
}
