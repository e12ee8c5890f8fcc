// Command readscaped runs the readscape processing daemon: it claims books
// from the library and drives them through classification, segmentation, and
// soundscape matching until they are ready for review.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"readscape/internal/config"
	"readscape/internal/daemon"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	// Optional .env for API keys; absence is not an error.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := daemon.Run(context.Background(), cfg, daemon.RunOptions{LogLevel: *logLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "readscaped: %v\n", err)
		os.Exit(1)
	}
}
