package cmd

import (
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goingest/internal/schema"
	"github.com/dbsmedya/goingest/internal/sink"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version and build details together with the schema output
formats and destination drivers this build supports.`,
	Run: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	cmd.Printf("goingest version %s\n", Version)
	cmd.Printf("  Commit: %s\n", Commit)
	cmd.Printf("  Go version: %s\n", runtime.Version())
	cmd.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	cmd.Printf("  Schema formats: %s\n", strings.Join(schema.Formats(), ", "))
	cmd.Printf("  Destinations: %s\n", strings.Join(sink.Drivers(), ", "))
}
