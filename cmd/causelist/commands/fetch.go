package commands

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/causelist/captcha"
	"github.com/use-agent/causelist/models"
)

var (
	fetchCourts []string
	fetchAll    bool
	fetchDate   string
	fetchType   string
	fetchJSON   bool
)

func init() {
	f := fetchCmd.Flags()
	f.StringSliceVarP(&fetchCourts, "court", "c", nil, `court value, optionally "value=Label"; repeatable`)
	f.BoolVar(&fetchAll, "all", false, "fetch every court of the complex")
	f.StringVarP(&fetchDate, "date", "d", "", "cause-list date, MM/DD/YYYY (default today)")
	f.StringVarP(&fetchType, "type", "t", "civil", `case type: "civil" or "criminal"`)
	f.BoolVar(&fetchJSON, "json", false, "print JSON outcomes instead of a table")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch (--court <value>... | --all) [--date MM/DD/YYYY] [--type civil|criminal]",
	Short: "Downloads the cause list of one or more courts.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(fetchCourts) == 0 && !fetchAll {
			return fmt.Errorf("pass --court at least once, or --all")
		}
		if fetchDate == "" {
			fetchDate = time.Now().Format(models.DateLayout)
		}

		req := models.CauseListRequest{Date: fetchDate, CaseType: fetchType}
		for _, c := range fetchCourts {
			value, label, _ := strings.Cut(c, "=")
			req.Courts = append(req.Courts, models.CourtRef{Value: strings.TrimSpace(value), Label: strings.TrimSpace(label)})
		}
		// Reject bad dates and types before any browser starts.
		if _, err := req.Criteria(nil); err != nil {
			return err
		}

		var prompter captcha.Prompter
		if cfg.Captcha.Manual != "none" {
			prompter = captcha.NewConsolePrompter()
		}
		a, err := newApp(prompter)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()

		// Labels name the output files, so resolve them from the portal
		// unless every court came with one.
		var courts []models.CourtOption
		if fetchAll || needsLabels(req.Courts) {
			if courts, err = a.orch.FetchCourts(ctx); err != nil {
				return err
			}
		}
		if fetchAll {
			req.Courts = req.Courts[:0]
			for _, c := range courts {
				req.Courts = append(req.Courts, models.CourtRef{Value: c.Value, Label: c.Label})
			}
			slog.Info("fetching every court", "count", len(req.Courts))
		}

		criteria, err := req.Criteria(labelled(req.Courts, courts))
		if err != nil {
			return err
		}
		outcomes, err := a.orch.Run(ctx, criteria)
		if err != nil {
			return err
		}

		if fetchJSON {
			return printJSON(outcomes)
		}
		renderOutcomes(outcomes)
		if models.JobStatus(outcomes) == models.JobFailed {
			return fmt.Errorf("no court could be fetched")
		}
		return nil
	},
}

func needsLabels(refs []models.CourtRef) bool {
	for _, r := range refs {
		if r.Label == "" {
			return true
		}
	}
	return false
}
