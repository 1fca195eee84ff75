package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/idowu-gb/MAD-Project/server"
	"github.com/idowu-gb/MAD-Project/server/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var emailArg string

func init() {
	rootCmd.AddCommand(createTripsCmd())
}

func createTripsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "List a user's trips",
		Long:  `Lists the trips of the user with the given email, newest first, straight from the server's database`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrips(context.Background(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&emailArg, "email", "e", "", "email of the user")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runTrips(ctx context.Context, out io.Writer) error {
	configValues, err := serverConfig()
	if err != nil {
		return err
	}

	config, err := server.LoadConfig(configValues)
	if err != nil {
		return err
	}

	configDir, err := server.ConfigDirectory(isDevEnv)
	if err != nil {
		return err
	}

	if err := models.AutoMigrate(config.Database, config.Sqlite.PassPhrase, configDir); err != nil {
		return err
	}

	store := models.Store{}
	user, err := store.FindUserByEmail(ctx, emailArg)
	if err != nil {
		return err
	}

	if user == nil {
		return formattedError("no user with email '%v'", emailArg)
	}

	trips, err := store.TripsForUser(ctx, user.ID)
	if err != nil {
		return err
	}

	renderTrips(out, trips)
	return nil
}

func renderTrips(out io.Writer, trips []models.Trip) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"ID", "Departure", "Destination", "ETA", "Status", "Image", "Created"})
	for _, trip := range trips {
		image := ""
		if trip.ImageURI != nil {
			image = *trip.ImageURI
		}

		t.AppendRow(table.Row{
			trip.ID,
			trip.Departure,
			trip.Destination,
			trip.ETA,
			trip.Status,
			image,
			trip.CreatedAt.Format(time.RFC822),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", fmt.Sprint(len(trips))})

	t.Render()
}
