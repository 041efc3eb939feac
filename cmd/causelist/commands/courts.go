package commands

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/causelist/models"
)

var courtsJSON bool

func init() {
	courtsCmd.Flags().BoolVar(&courtsJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(courtsCmd)
}

var courtsCmd = &cobra.Command{
	Use:   "courts",
	Short: "Lists the courts offered for the configured court complex.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		courts, err := a.orch.FetchCourts(cmd.Context())
		if err != nil {
			return err
		}
		if courtsJSON {
			return printJSON(courts)
		}
		renderCourts(courts)
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// labelled fills missing labels from the portal's own list.
func labelled(refs []models.CourtRef, courts []models.CourtOption) map[string]string {
	labels := make(map[string]string, len(courts))
	for _, c := range courts {
		labels[c.Value] = c.Label
	}
	for _, r := range refs {
		if r.Label != "" {
			labels[r.Value] = r.Label
		}
	}
	return labels
}
