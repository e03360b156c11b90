package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var criteriaCmd = &cobra.Command{
	Use:   "criteria",
	Short: "Print the scoring instructions rendered from the configured criteria",
	Run: func(_ *cobra.Command, _ []string) {
		config, err := getConfig()
		if err != nil {
			log.Fatalf("getting a config: %v", err)
		}

		schema, err := getSchema(config)
		if err != nil {
			log.Fatalf("building criteria schema: %v", err)
		}

		fmt.Print(schema.Describe())
	},
}

func init() {
	rootCmd.AddCommand(criteriaCmd)
}
