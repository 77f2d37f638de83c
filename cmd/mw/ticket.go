package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/millwright/internal/models"
	"github.com/zulandar/millwright/internal/overdue"
	"github.com/zulandar/millwright/internal/settings"
	"github.com/zulandar/millwright/internal/ticket"
)

func newTicketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Ticket management commands",
	}

	cmd.AddCommand(newTicketCreateCmd())
	cmd.AddCommand(newTicketListCmd())
	cmd.AddCommand(newTicketShowCmd())
	cmd.AddCommand(newTicketUpdateCmd())
	cmd.AddCommand(newTicketDeleteCmd())
	cmd.AddCommand(newTicketOverdueCmd())
	return cmd
}

// actorFlags adds the identity flags every mutating ticket command needs.
func actorFlags(cmd *cobra.Command, userID *uint, role, name *string) {
	cmd.Flags().UintVar(userID, "as-user", 0, "acting user ID (required)")
	cmd.Flags().StringVar(role, "as-role", models.RoleTechnician, "acting role (operator, technician, supervisor, admin)")
	cmd.Flags().StringVar(name, "as-name", "", "acting user display name")
	cmd.MarkFlagRequired("as-user")
}

// parseAssignee converts the --assign flag value: "none", "team", or a user ID.
func parseAssignee(s string) (models.Assignee, error) {
	switch s {
	case "", "none":
		return models.Unassigned(), nil
	case "team":
		return models.AssignTeam(), nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return models.Assignee{}, fmt.Errorf("invalid --assign value %q (none, team, or a user ID)", s)
	}
	return models.AssignUser(uint(id)), nil
}

func parseScheduled(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("invalid scheduled time %q (RFC3339 or \"2006-01-02 15:04\")", s)
}

func newTicketCreateCmd() *cobra.Command {
	var (
		configPath  string
		userID      uint
		role, name  string
		title       string
		description string
		priority    string
		machineID   uint
		assign      string
		scheduled   string
		machineDown bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new ticket",
		Long:  "Files a maintenance ticket against a machine with an auto-generated code.",
		RunE: func(cmd *cobra.Command, args []string) error {
			assignee, err := parseAssignee(assign)
			if err != nil {
				return err
			}
			scheduledAt, err := parseScheduled(scheduled)
			if err != nil {
				return err
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			svc, err := ticket.NewService(ticket.Opts{DB: gormDB})
			if err != nil {
				return err
			}

			t, err := svc.Create(ticket.Actor{UserID: userID, Role: role, Name: name}, ticket.CreateOpts{
				Title:         title,
				Description:   description,
				Priority:      priority,
				MachineID:     machineID,
				Assignee:      assignee,
				ScheduledAt:   scheduledAt,
				IsMachineDown: machineDown,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created ticket %s (ID %d)\n", t.Code, t.ID)
			fmt.Fprintf(out, "Status: %s, priority: %s\n", t.Status, t.Priority)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "millwright.yaml", "path to Millwright config file")
	actorFlags(cmd, &userID, &role, &name)
	cmd.Flags().StringVar(&title, "title", "", "ticket title (required)")
	cmd.Flags().StringVar(&description, "description", "", "detailed description")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (low, medium, high, critical)")
	cmd.Flags().UintVar(&machineID, "machine", 0, "machine ID (required)")
	cmd.Flags().StringVar(&assign, "assign", "", "assignee (none, team, or a user ID)")
	cmd.Flags().StringVar(&scheduled, "scheduled", "", "scheduled time")
	cmd.Flags().BoolVar(&machineDown, "machine-down", false, "the machine is stopped")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("machine")
	return cmd
}

func newTicketListCmd() *cobra.Command {
	var (
		configPath     string
		status         string
		priority       string
		machineID      uint
		reportedBy     uint
		includeDeleted bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		Long:  "Lists tickets with optional filters, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			svc, err := ticket.NewService(ticket.Opts{DB: gormDB})
			if err != nil {
				return err
			}

			tickets, err := svc.List(ticket.Filters{
				Status:         status,
				Priority:       priority,
				MachineID:      machineID,
				ReportedBy:     reportedBy,
				IncludeDeleted: includeDeleted,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tickets) == 0 {
				fmt.Fprintln(out, "No tickets found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tTITLE\tSTATUS\tPRI\tMACHINE\tASSIGNEE")
			for _, t := range tickets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					t.Code, truncate(t.Title, 40), t.Status, t.Priority, t.MachineID, t.Assignee)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "millwright.yaml", "path to Millwright config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority")
	cmd.Flags().UintVar(&machineID, "machine", 0, "filter by machine ID")
	cmd.Flags().UintVar(&reportedBy, "reporter", 0, "filter by reporter user ID")
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "include soft-deleted tickets")
	return cmd
}

func newTicketShowCmd() *cobra.Command {
	var (
		configPath     string
		includeDeleted bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show ticket details",
		Long:  "Displays full details of a ticket including its machine and timeline.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ticket ID %q", args[0])
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			svc, err := ticket.NewService(ticket.Opts{DB: gormDB})
			if err != nil {
				return err
			}

			var t *models.Ticket
			if includeDeleted {
				t, err = svc.GetAny(uint(id))
			} else {
				t, err = svc.Get(uint(id))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Code:        %s\n", t.Code)
			fmt.Fprintf(out, "Title:       %s\n", t.Title)
			fmt.Fprintf(out, "Status:      %s\n", t.Status)
			fmt.Fprintf(out, "Priority:    %s\n", t.Priority)
			fmt.Fprintf(out, "Assignee:    %s\n", t.Assignee)
			fmt.Fprintf(out, "Reporter:    %s (ID %d)\n", t.ReporterName, t.ReportedBy)
			if t.Machine != nil {
				label := t.Machine.MachineType
				if t.Machine.Model != "" {
					label += " " + t.Machine.Model
				}
				fmt.Fprintf(out, "Machine:     %s (ID %d, %s)\n", label, t.MachineID, t.Machine.Status)
			} else {
				fmt.Fprintf(out, "Machine:     ID %d\n", t.MachineID)
			}
			if t.IsMachineDown {
				fmt.Fprintln(out, "Machine down: yes")
			}
			if t.ScheduledAt != nil {
				fmt.Fprintf(out, "Scheduled:   %s\n", t.ScheduledAt.Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(out, "Created:     %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
			if t.CompletedAt != nil {
				fmt.Fprintf(out, "Completed:   %s\n", t.CompletedAt.Format("2006-01-02 15:04:05"))
			}
			if t.Deleted() {
				fmt.Fprintf(out, "Deleted:     %s\n", t.DeletedAt.Format("2006-01-02 15:04:05"))
			}

			if t.Description != "" {
				fmt.Fprintf(out, "\nDescription:\n%s\n", t.Description)
			}

			if len(t.Timeline) > 0 {
				fmt.Fprintln(out, "\nTimeline:")
				for _, e := range t.Timeline {
					line := fmt.Sprintf("  [%s] user=%d %s", e.CreatedAt.Format("2006-01-02 15:04"), e.UserID, e.Action)
					if e.OldStatus != nil && e.NewStatus != nil {
						line += fmt.Sprintf(" (%s -> %s)", *e.OldStatus, *e.NewStatus)
					}
					if e.Note != "" {
						line += ": " + e.Note
					}
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "millwright.yaml", "path to Millwright config file")
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "show even if soft-deleted")
	return cmd
}

func newTicketUpdateCmd() *cobra.Command {
	var (
		configPath  string
		userID      uint
		role, name  string
		title       string
		description string
		status      string
		priority    string
		assign      string
		scheduled   string
		machineDown bool
		note        string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a ticket",
		Long:  "Applies a partial update under role-based rules. Only changed flags are applied.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ticket ID %q", args[0])
			}

			ch := ticket.Changes{Note: note}
			if cmd.Flags().Changed("title") {
				ch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				ch.Description = &description
			}
			if cmd.Flags().Changed("status") {
				ch.Status = &status
			}
			if cmd.Flags().Changed("priority") {
				ch.Priority = &priority
			}
			if cmd.Flags().Changed("assign") {
				assignee, err := parseAssignee(assign)
				if err != nil {
					return err
				}
				ch.Assignee = &assignee
			}
			if cmd.Flags().Changed("scheduled") {
				ch.SetScheduledAt = true
				if !strings.EqualFold(scheduled, "none") {
					ts, err := parseScheduled(scheduled)
					if err != nil {
						return err
					}
					ch.ScheduledAt = ts
				}
			}
			if cmd.Flags().Changed("machine-down") {
				ch.SetMachineDown = &machineDown
			}
			if ch == (ticket.Changes{Note: note}) {
				return fmt.Errorf("no fields to update; use --title, --status, --priority, --assign, --scheduled, or --machine-down")
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			svc, err := ticket.NewService(ticket.Opts{DB: gormDB})
			if err != nil {
				return err
			}

			t, err := svc.Update(uint(id), ticket.Actor{UserID: userID, Role: role, Name: name}, ch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated ticket %s (status %s, assignee %s)\n", t.Code, t.Status, t.Assignee)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "millwright.yaml", "path to Millwright config file")
	actorFlags(cmd, &userID, &role, &name)
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority")
	cmd.Flags().StringVar(&assign, "assign", "", "new assignee (none, team, or a user ID)")
	cmd.Flags().StringVar(&scheduled, "scheduled", "", "new scheduled time (\"none\" to clear)")
	cmd.Flags().BoolVar(&machineDown, "machine-down", false, "set the machine-down flag")
	cmd.Flags().StringVar(&note, "note", "", "timeline comment")
	return cmd
}

func newTicketDeleteCmd() *cobra.Command {
	var (
		configPath string
		userID     uint
		role, name string
	)

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a ticket",
		Long:  "Marks a ticket deleted. The row is kept and can still be fetched with --include-deleted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ticket ID %q", args[0])
			}

			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			svc, err := ticket.NewService(ticket.Opts{DB: gormDB})
			if err != nil {
				return err
			}

			if err := svc.SoftDelete(uint(id), ticket.Actor{UserID: userID, Role: role, Name: name}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted ticket %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "millwright.yaml", "path to Millwright config file")
	actorFlags(cmd, &userID, &role, &name)
	return cmd
}

func newTicketOverdueCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue tickets",
		Long:  "Lists active tickets whose scheduled time has passed, oldest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			views, err := overdue.List(gormDB, settings.NewStore(gormDB), time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No overdue tickets.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tTITLE\tSTATUS\tMACHINE\tSCHEDULED\tOVERDUE")
			for _, v := range views {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					v.Code, truncate(v.Title, 40), v.Status, v.MachineType, v.ScheduledLocal, v.Delay)
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "millwright.yaml", "path to Millwright config file")
	return cmd
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
