package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/spigell/cv-scorer/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every stored record as CSV with reconciled columns",
	Run: func(cmd *cobra.Command, _ []string) {
		output, _ := cmd.Flags().GetString("output")
		if err := export(output); err != nil {
			log.Fatalf("exporting records: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "destination file (default is stdout)")
}

func export(output string) error {
	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	st, err := openStore(config)
	if err != nil {
		return err
	}
	defer st.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	return store.WriteCSV(w, st.Records())
}
