package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/millwright/internal/alert"
)

func newAlertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Display alert commands",
	}

	cmd.AddCommand(newAlertListCmd())
	return cmd
}

func newAlertListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active alerts",
		Long:  "Lists unexpired display alerts, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			alerts, err := alert.ListActive(gormDB, time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(alerts) == 0 {
				fmt.Fprintln(out, "No active alerts.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPRI\tAUTO\tCREATED")
			for _, a := range alerts {
				auto := "-"
				if a.AutoGenerated {
					auto = "yes"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					a.ID, truncate(a.Title, 40), a.Priority, auto, a.CreatedAt.Format("2006-01-02 15:04"))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "millwright.yaml", "path to Millwright config file")
	return cmd
}
