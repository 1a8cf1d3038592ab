package cli

import (
	"fmt"
	"runtime"

	"github.com/srgkas/laravel-echo-server/internal/build"

	"github.com/spf13/cobra"
)

func Version() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Echo server version information",
		Long:  `Print the version information of the echo server`,
		Run: func(cmd *cobra.Command, args []string) {
			version()
		},
	}
}

func version() {
	fmt.Printf("echo-server v%s (Go version: %s)\n", build.Version, runtime.Version())
}
