package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"scenic/internal/db"
	"scenic/internal/geo"
	"scenic/internal/library"
	"scenic/internal/model"
	"scenic/internal/util"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	styleHeader  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	styleBorder  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
)

// newLibraryCmd groups the commands that work on saved roads.
func newLibraryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "List or remove saved roads",
	}
	cmd.AddCommand(newLibraryListCmd(opts))
	cmd.AddCommand(newLibraryRemoveCmd(opts))
	return cmd
}

func newLibraryListCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON bool
		miles  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved roads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cmd, opts, func(store *library.Store) error {
				roads := store.Roads()
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), roads)
				}
				if len(roads) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Your library is empty.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderRoadTable(roads, miles))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print roads as JSON")
	cmd.Flags().BoolVar(&miles, "miles", false, "show lengths in miles")
	return cmd
}

func newLibraryRemoveCmd(opts *rootOptions) *cobra.Command {
	var (
		name     string
		lat, lon float64
	)
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a saved road",
		Long:  `Remove a saved road. A road is identified by its name and start coordinates, as shown by "scenic library list --json".`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			road := model.Road{Name: name, StartLat: lat, StartLon: lon}
			return withLibrary(cmd, opts, func(store *library.Store) error {
				if !store.Contains(road) {
					return fmt.Errorf("no saved road %q starting at %s", name, util.FormatCoords(lat, lon))
				}
				if err := store.Remove(road); err != nil {
					return fmt.Errorf("remove road: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), styleSuccess.Render(fmt.Sprintf("✓ Removed %q", name)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "road name")
	cmd.Flags().Float64Var(&lat, "lat", 0, "start latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "start longitude")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

// withLibrary opens the configured database for the duration of fn.
func withLibrary(cmd *cobra.Command, opts *rootOptions, fn func(*library.Store) error) error {
	cfg, err := loadConfig(opts.v, opts.configDir)
	if err != nil {
		return err
	}
	logger := loggerFromContext(cmd.Context())

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	logger.Debug("Opened library", "db", cfg.Database.Path)
	return fn(library.Open(db.NewKV(database), logger))
}

func writeJSON(w io.Writer, roads []model.Road) error {
	if roads == nil {
		roads = []model.Road{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(roads)
}

func renderRoadTable(roads []model.Road, miles bool) string {
	rows := make([][]string, 0, len(roads))
	for i, r := range roads {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			util.TruncateString(r.Name, 40),
			util.FormatCoords(r.StartLat, r.StartLon),
			util.FormatDistance(geo.Convert(geo.RoadSpan(r), miles), miles),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers("#", "Road", "Start", "Length").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.String()
}
