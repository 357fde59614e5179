package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"rideshare/internal/domain"
	"rideshare/internal/messaging"
	"rideshare/internal/repository"
	"rideshare/internal/repository/postgres"
	"rideshare/internal/search"
	"rideshare/internal/service"
)

func newRidesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rides",
		Short: "Inspect and seed rides",
	}
	cmd.AddCommand(
		newRidesListCmd(e),
		newRidesSearchCmd(e),
		newRidesSimilarCmd(e),
		newRidesSeedCmd(e),
	)
	return cmd
}

func newRidesListCmd(e *env) *cobra.Command {
	var page repository.Page
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent rides",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rides, err := postgres.NewRideRepository(e.db).GetAll(cmd.Context(), page)
			if err != nil {
				return err
			}
			return printRides(cmd.OutOrStdout(), rides)
		},
	}
	cmd.Flags().IntVar(&page.Limit, "limit", 10, "rides to show, 0 for all")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "rides to skip")
	return cmd
}

func newRidesSearchCmd(e *env) *cobra.Command {
	var p search.Params
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a ride search exactly as the API does",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := search.Build(p, e.cfg.Search.Location())
			if err != nil {
				return err
			}
			rides, err := postgres.NewRideRepository(e.db).Search(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printRides(cmd.OutOrStdout(), rides)
		},
	}
	cmd.Flags().StringVar(&p.From, "from", "", "origin substring")
	cmd.Flags().StringVar(&p.To, "to", "", "destination substring")
	cmd.Flags().StringVar(&p.Seat, "seat", "1", "seats required")
	cmd.Flags().StringVar(&p.Date, "date", time.Now().Format("2006-01-02"), "travel date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&p.Sort, "sort", "", "Price, Shortest ride or Earliest departure")
	cmd.Flags().StringSliceVar(&p.Departure, "departure", nil, "departure buckets")
	return cmd
}

func newRidesSimilarCmd(e *env) *cobra.Command {
	var origin, destination string
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Find rides on a route in either direction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if origin == "" || destination == "" {
				return errors.New("--origin and --destination are required")
			}
			rides, err := postgres.NewRideRepository(e.db).FindSimilarRoutes(cmd.Context(), origin, destination)
			if err != nil {
				return err
			}
			return printRides(cmd.OutOrStdout(), rides)
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "", "origin substring")
	cmd.Flags().StringVar(&destination, "destination", "", "destination substring")
	return cmd
}

func newRidesSeedCmd(e *env) *cobra.Command {
	var (
		from, to string
		seats    int
		price    float64
		in       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Publish a test ride owned by the oldest user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			users, err := postgres.NewUserRepository(e.db).GetAll(ctx)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				return errors.New("no users found, register one first")
			}
			creator := users[len(users)-1]

			rides := service.NewRideService(postgres.NewRideRepository(e.db), nil, messaging.LogPublisher{}, nil, e.cfg.Search.Location())
			start := time.Now().Add(in).Truncate(time.Minute)
			ride, err := rides.Create(ctx, creator.ID, service.CreateRideRequest{
				Origin:      domain.Place{Name: from},
				Destination: domain.Place{Name: to},
				StartTime:   start,
				EndTime:     start.Add(time.Hour),
				Seats:       seats,
				Price:       price,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created ride %s for %s\n", ride.ID, creator.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "Bengaluru", "origin")
	cmd.Flags().StringVar(&to, "to", "Yelahanka", "destination")
	cmd.Flags().IntVar(&seats, "seats", 3, "seat capacity")
	cmd.Flags().Float64Var(&price, "price", 150, "price per seat")
	cmd.Flags().DurationVar(&in, "in", 24*time.Hour, "departure offset from now")
	return cmd
}

func printRides(out io.Writer, rides []*domain.Ride) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFROM\tTO\tSTART\tSEATS\tPRICE\tSTATUS")
	for _, r := range rides {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%.2f\t%s\n",
			r.ID, r.Origin.Name, r.Destination.Name, r.StartTime.Format(time.RFC3339),
			r.AvailableSeats, r.Seats, r.Price, r.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d ride(s)\n", len(rides))
	return err
}
