package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:               "tokenflow",
		Short:             "BPMN process walker, DMN evaluator and job scheduler",
		PersistentPreRunE: cli.setupConfig,
		SilenceUsage:      true,
	}
	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}
	cmd.AddCommand(
		cli.serveCommand(),
		cli.runCommand(),
		cli.evalCommand(),
		cli.workerCommand(),
	)

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
