package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/notebridge/internal/editor"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/notebridge/internal/settings"
	"github.com/GriffinCanCode/notebridge/internal/storage"
)

// SettingsOptions select the store the settings commands work on.
type SettingsOptions struct {
	DB       string
	Defaults string
}

// MigrateResult reports a settings migration.
type MigrateResult struct {
	Migrated []string        `json:"migrated"`
	Settings editor.Settings `json:"settings"`
}

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SettingsOptions{}

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and migrate the app settings",
	}

	defaults := config.Default()
	cmd.PersistentFlags().StringVar(&opts.DB, "db", defaults.Storage.Path, "database path")
	cmd.PersistentFlags().StringVar(&opts.Defaults, "defaults", "", "YAML file overlaid on the built-in defaults")

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the settings document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsShow(rootOpts, opts, cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Move legacy keys into the settings document",
		Long: `Move the flat keys written by older releases into the settings
document and remove them. Running it again changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsMigrate(rootOpts, opts, cmd.OutOrStdout())
		},
	})

	return cmd
}

func openService(opts *SettingsOptions) (*storage.Store, *settings.Service, error) {
	defaults, err := settings.LoadDefaults(opts.Defaults)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(opts.DB, nil)
	if err != nil {
		return nil, nil, err
	}
	return store, settings.NewService(store, settings.Options{Defaults: defaults}, nil), nil
}

func runSettingsShow(rootOpts *RootOptions, opts *SettingsOptions, w io.Writer) error {
	store, svc, err := openService(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	current, err := svc.Load()
	if err != nil {
		return err
	}

	if rootOpts.Format == "json" {
		return writeJSON(w, current)
	}
	keys := make([]string, 0, len(current))
	for k := range current {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v, err := sonic.ConfigStd.MarshalToString(current[k])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s\n", k, v)
	}
	return nil
}

func runSettingsMigrate(rootOpts *RootOptions, opts *SettingsOptions, w io.Writer) error {
	store, svc, err := openService(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	var present []string
	for _, key := range settings.LegacyKeys {
		_, err := store.GetString(key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		present = append(present, key)
	}

	current, err := svc.Init()
	if err != nil {
		return err
	}

	// Init only migrates once; keys written later stay where they are
	migrated := []string{}
	for _, key := range present {
		if _, err := store.GetString(key); errors.Is(err, storage.ErrNotFound) {
			migrated = append(migrated, key)
		}
	}

	if rootOpts.Format == "json" {
		return writeJSON(w, MigrateResult{Migrated: migrated, Settings: current})
	}
	if len(migrated) == 0 {
		fmt.Fprintln(w, "Nothing to migrate")
		return nil
	}
	fmt.Fprintf(w, "Migrated %d legacy key(s): %s\n", len(migrated), strings.Join(migrated, ", "))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
