package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wolfman30/medibook-client/internal/api"
	"github.com/wolfman30/medibook-client/internal/dashboard"
	"github.com/wolfman30/medibook-client/internal/directory"
)

func doctorsCmd(current func() *app) *cobra.Command {
	var search, specialty string
	cmd := &cobra.Command{
		Use:   "doctors",
		Short: "List doctors, optionally filtered by name or specialty",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			dir := directory.New(a.client, a.logger, nil)
			doctors := dir.Doctors(cmd.Context())
			matches := directory.Filter(doctors, search, specialty)
			if len(matches) == 0 {
				fmt.Fprintln(a.out, "No doctors found matching your criteria.")
				fmt.Fprintf(a.out, "Specialties: %v\n", directory.Specialties(doctors))
				return nil
			}
			printDoctors(a.out, matches)
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match doctor name or specialty")
	cmd.Flags().StringVar(&specialty, "specialty", directory.AllSpecialties, "exact specialty, or All")
	return cmd
}

func homeCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show featured doctors, services and testimonials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			home := directory.LoadHome(cmd.Context(), a.client, a.logger)

			fmt.Fprintln(a.out, "Services")
			for _, s := range home.Services {
				fmt.Fprintf(a.out, "  - %s: %s\n", s.Title, s.Description)
			}
			fmt.Fprintln(a.out, "\nDoctors")
			featured := home.Doctors
			if len(featured) > 4 {
				featured = featured[:4]
			}
			printDoctors(a.out, featured)
			fmt.Fprintln(a.out, "\nWhat patients say")
			for _, t := range home.Testimonials {
				fmt.Fprintf(a.out, "  %q - %s\n", t.Text, t.Name)
			}
			return nil
		},
	}
}

func whoamiCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			user := a.session.User()
			if user == nil {
				fmt.Fprintln(a.out, "Not logged in.")
				return nil
			}
			fmt.Fprintf(a.out, "%s <%s> (%s, id %d)\n", user.Name, user.Email, user.Role, user.ID)
			return nil
		},
	}
}

func dashboardCmd(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show your appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			view, err := dashboard.NewService(a.client, a.session, a.logger).Load(cmd.Context())
			if err != nil {
				return err
			}
			label := "Doctors seen"
			if view.User.Role == api.RoleDoctor {
				label = "Patients"
			}
			fmt.Fprintf(a.out, "Welcome back, %s\n", view.User.Name)
			fmt.Fprintf(a.out, "Upcoming: %d  Completed: %d  %s: %d\n\n",
				view.Stats.Upcoming, view.Stats.Completed, label, view.Stats.Counterparts)
			if len(view.Appointments) == 0 {
				fmt.Fprintln(a.out, "No appointments yet.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tTIME\tWITH\tSTATUS")
			for _, appt := range view.Appointments {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", appt.Date, appt.Time, counterpartName(view.User.Role, appt), appt.Status)
			}
			return tw.Flush()
		},
	}
}

func counterpartName(role api.Role, appt api.Appointment) string {
	if role == api.RoleDoctor {
		if appt.Patient != nil && appt.Patient.Name != "" {
			return appt.Patient.Name
		}
		return fmt.Sprintf("patient #%d", appt.PatientRef())
	}
	if appt.Doctor != nil && appt.Doctor.Name != "" {
		return appt.Doctor.Name
	}
	return fmt.Sprintf("doctor #%d", appt.DoctorRef())
}

func printDoctors(w io.Writer, doctors []api.Doctor) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSPECIALTY\tHOSPITAL\tFEE\tAVAILABILITY")
	for _, d := range doctors {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Specialty, d.Hospital, d.Fee.String(), d.Availability)
	}
	_ = tw.Flush()
}
