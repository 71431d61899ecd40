package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var port string

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	if envPort == "" {
		envPort = "8080"
	}

	cmd := &cobra.Command{
		Use:   "sciencebindu",
		Short: "Science Bindu learning platform API",
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on")
	cmd.AddCommand(NewServeCmd(&port))
	cmd.AddCommand(NewMigrateCmd())
	return cmd
}
