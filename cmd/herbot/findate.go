package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"herbot/internal/dates"
)

func newFinDateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "findate <month> <year>",
		Short: "Convert a financial month and year (e.g. 7 202425) to a calendar date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("month %q is not a number", args[0])
			}
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("year %q is not a number", args[1])
			}
			t, err := dates.ConvertFinDates(month, year)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.DateOnly))
			return nil
		},
	}
}
