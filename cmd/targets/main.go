// targets computes daily calorie/macro targets, BMI and meal totals offline,
// with the same calculator the API uses.
// Usage: go run ./cmd/targets calc --weight 80 --height 180 --age 30 --goal lose
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var jsonOut bool

var rootCmd = &cobra.Command{
	Use:           "targets",
	Short:         "targets computes biteright daily limits from body stats",
	Long:          "targets runs the biteright goal calculator and nutrition aggregator without a database.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print JSON instead of text")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
