package main

import (
	"fmt"
	"os"

	"github.com/airbreak404/media-server/internal/mediactl"
	"github.com/airbreak404/media-server/internal/tui"
)

func main() {
	if len(os.Args) < 2 {
		mediactl.Usage()
		os.Exit(1)
	}

	logger, err := mediactl.InitLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch os.Args[1] {
	case "setup":
		err = tui.StartWizard()
	case "dash":
		err = tui.StartDash()
	default:
		err = mediactl.Run(os.Args[1:])
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
