package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/millwright/internal/machine"
)

func newMachineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "machine",
		Short: "Machine commands",
	}

	cmd.AddCommand(newMachineListCmd())
	cmd.AddCommand(newMachineShowCmd())
	return cmd
}

func newMachineListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List machines",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			machines, err := machine.List(gormDB)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(machines) == 0 {
				fmt.Fprintln(out, "No machines found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tMODEL\tLOCATION\tSTATUS")
			for _, m := range machines {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					m.ID, m.MachineType, m.Model, m.Location, m.Status)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "millwright.yaml", "path to Millwright config file")
	return cmd
}

func newMachineShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show machine details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid machine ID %q", args[0])
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			m, err := machine.Get(gormDB, uint(id))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %d\n", m.ID)
			fmt.Fprintf(out, "Type:      %s\n", m.MachineType)
			fmt.Fprintf(out, "Model:     %s\n", m.Model)
			fmt.Fprintf(out, "Location:  %s\n", m.Location)
			fmt.Fprintf(out, "Status:    %s\n", m.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "millwright.yaml", "path to Millwright config file")
	return cmd
}
