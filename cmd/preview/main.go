package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
	"github.com/Freeeeeet/servicejobs/internal/recurrence"
	"github.com/Freeeeeet/servicejobs/internal/timezone"
)

var (
	previewAnchor  string
	previewZone    string
	previewCount   int
	previewHorizon int
)

var rootCmd = &cobra.Command{
	Use:   "preview RULE",
	Short: "Preview the next starts of a recurrence rule",
	Long: `Preview prints the next starts of a recurrence rule as local wall-clock
time and as the UTC instant a job would be stored with. Nothing is written.

Examples:
  preview 'FREQ=WEEKLY;BYDAY=TU,TH' --start '2024-01-02 09:00' --zone America/New_York
  preview 'FREQ=MONTHLY;BYMONTHDAY=31' --start '2024-01-31 08:30' --count 6`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPreview(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.Flags().StringVarP(&previewAnchor, "start", "s", "", "First start as YYYY-MM-DD HH:MM (default: today 09:00)")
	rootCmd.Flags().StringVarP(&previewZone, "zone", "z", "UTC", "IANA time zone of the series")
	rootCmd.Flags().IntVarP(&previewCount, "count", "n", 10, "Maximum number of starts")
	rootCmd.Flags().IntVar(&previewHorizon, "months", 12, "Horizon in months")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, apperr.UserMessage(err))
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runPreview(w io.Writer, ruleText string) error {
	rule, err := recurrence.Parse(ruleText)
	if err != nil {
		return err
	}

	tz := timezone.NewConverter()
	if _, err := tz.Location(previewZone); err != nil {
		return err
	}

	anchor, err := parseAnchor(tz, previewAnchor, previewZone)
	if err != nil {
		return err
	}

	starts, err := recurrence.Preview(rule, anchor, previewHorizon, previewCount)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s (%s)\n\n", recurrence.Describe(rule, anchor.Time), previewZone)
	for i, dt := range starts {
		instant, err := tz.ToInstant(dt.Date, dt.Time, previewZone)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%3d. %s %s %02d:%02d  %s\n", i+1,
			dt.Date.Weekday().String()[:3],
			dt.Date,
			dt.Time.Hour,
			dt.Time.Minute,
			instant.Format(time.RFC3339))
	}
	if len(starts) == 0 {
		fmt.Fprintln(w, "no upcoming starts")
	}
	return nil
}

func parseAnchor(tz *timezone.Converter, raw, zone string) (civil.DateTime, error) {
	if raw == "" {
		today, err := tz.Today(time.Now(), zone)
		if err != nil {
			return civil.DateTime{}, err
		}
		return civil.DateTime{Date: today, Time: civil.Time{Hour: 9}}, nil
	}

	t, err := time.Parse("2006-01-02 15:04", raw)
	if err != nil {
		return civil.DateTime{}, apperr.Validationf("start", "%q is not YYYY-MM-DD HH:MM", raw)
	}
	return civil.DateTimeOf(t), nil
}
