package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hackgods/practice-records/internal/practice"
)

type opener func(ctx context.Context) (*practice.Store, func(), error)

// cli carries the store opened by the root command's pre-run hook.
type cli struct {
	open  opener
	store *practice.Store
	close func()
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "practicectl",
		Short:         "Inspect the practice record store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			c.store, c.close = store, closeFn
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.close != nil {
				c.close()
			}
		},
	}

	root.AddCommand(c.patientsCmd())
	root.AddCommand(c.scheduleCmd())
	root.AddCommand(c.plansCmd())
	root.AddCommand(c.outcomesCmd())
	root.AddCommand(c.statsCmd())
	root.AddCommand(c.exportCmd())
	return root
}

func (c *cli) patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List patients, optionally filtered by name, phone or email",
		RunE: func(cmd *cobra.Command, args []string) error {
			search, _ := cmd.Flags().GetString("search")
			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tNAME\tPHONE\tEMAIL\tINSURANCE")
			for _, p := range c.store.Snapshot().SearchPatients(search) {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Phone, p.Email, p.Insurance)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("search", "", "Case-insensitive match on name, phone or email")
	return cmd
}

func (c *cli) scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show appointments for a day, or a range of weeks",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			weeks, _ := cmd.Flags().GetInt("weeks")
			if date == "" {
				date = time.Now().Format(practice.DateLayout)
			}

			snap := c.store.Snapshot()
			var days []practice.DaySchedule
			if weeks > 0 {
				var err error
				if days, err = snap.AppointmentRange(date, weeks); err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
			} else {
				if _, err := time.Parse(practice.DateLayout, date); err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
				days = []practice.DaySchedule{{Date: date, Appointments: snap.AppointmentsOn(date)}}
			}

			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "DATE\tTIME\tMIN\tPATIENT\tPHONE\tREASON\tSTATUS")
			for _, d := range days {
				for _, a := range d.Appointments {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
						a.Date, a.Time, a.DurationMinutes, a.PatientName, a.PatientPhone, a.Reason, a.Status)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("date", "", "Start date, YYYY-MM-DD (default today)")
	cmd.Flags().Int("weeks", 0, "Number of weeks to show; 0 shows a single day")
	return cmd
}

func (c *cli) plansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List treatment plans by status or for one patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			patient, _ := cmd.Flags().GetString("patient")

			snap := c.store.Snapshot()
			plans := snap.TreatmentPlansByStatus(status)
			if patient != "" {
				id, err := practice.ParseID(patient)
				if err != nil {
					return fmt.Errorf("invalid --patient: %w", err)
				}
				var filtered []practice.TreatmentPlanView
				for _, p := range plans {
					if p.PatientID == id {
						filtered = append(filtered, p)
					}
				}
				plans = filtered
			}

			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tPATIENT\tTYPE\tSTART\tSTATUS\tCOST")
			for _, p := range plans {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.2f\n", p.ID, p.PatientName, p.TreatmentType, p.StartDate, p.Status, p.TotalCost)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("status", "all", "Plan status, or all")
	cmd.Flags().String("patient", "", "Only plans of this patient id")
	return cmd
}

func (c *cli) outcomesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outcomes",
		Short: "List treatment outcomes with rating averages",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := c.store.Snapshot()
			w := table(cmd.OutOrStdout())
			fmt.Fprintln(w, "ID\tPATIENT\tTREATMENT\tCOMPLETED\tSUCCESS\tSATISFACTION")
			for _, o := range snap.OutcomeViews() {
				sat := "-"
				if o.PatientSatisfaction != nil {
					sat = strconv.Itoa(*o.PatientSatisfaction)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", o.ID, o.PatientName, o.TreatmentType, o.CompletionDate, o.SuccessRating, sat)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			sum := snap.Summarize()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "\n%d outcomes, avg success %.1f, avg satisfaction %.1f\n",
				sum.Total, sum.AvgSuccessRating, sum.AvgSatisfaction)
			return err
		},
	}
}

func (c *cli) statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			if date == "" {
				date = time.Now().Format(practice.DateLayout)
			}
			st := c.store.Snapshot().Stats(date)

			w := table(cmd.OutOrStdout())
			fmt.Fprintf(w, "Patients\t%d\n", st.TotalPatients)
			fmt.Fprintf(w, "Active treatments\t%d\n", st.ActiveTreatments)
			fmt.Fprintf(w, "Appointments on %s\t%d\n", date, st.TodayAppointments)
			fmt.Fprintf(w, "Completed outcomes\t%d\n", st.Outcomes.Completed)
			fmt.Fprintf(w, "Avg success rating\t%.1f\n", st.Outcomes.AvgSuccessRating)
			fmt.Fprintf(w, "Avg satisfaction\t%.1f\n", st.Outcomes.AvgSatisfaction)
			for _, p := range st.RecentPatients {
				fmt.Fprintf(w, "Recent\t%s (%s)\n", p.Name, p.CreatedAt.Format(practice.DateLayout))
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("date", "", "Day to count appointments for (default today)")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the full snapshot document as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			data, err := c.store.Document()
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(data), out)
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	return cmd
}

func table(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}
