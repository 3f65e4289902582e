// Command jobtalkd runs the jobtalk resume chat service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "jobtalkd",
		Short:        "Resume chat and job match analysis service",
		Long:         "jobtalkd serves a retrieval-augmented resume chat API:\nupload a resume, ask questions about it, and score it against job descriptions.",
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jobtalkd %s\n", version)
		},
	}
}
