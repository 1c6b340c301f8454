package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"picturemission/internal/app"
	"picturemission/internal/photo"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flagValues mirrors the persistent flags; only flags the user set override
// the environment.
type flagValues struct {
	dataDir  string
	logPath  string
	catalog  string
	stateKey string
	memory   bool
	prizes   bool
}

func newRootCmd() *cobra.Command {
	var (
		fv    flagValues
		play  app.Config
		style string
		mot   string
	)

	root := &cobra.Command{
		Use:           "picturemission",
		Short:         "Win puzzle pieces in mini-games and reveal a secret family photo",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, fv)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("dev") {
				cfg.Dev = play.Dev
			}
			if f.Changed("dev-http") {
				cfg.DevHTTP = play.DevHTTP
			}
			if f.Changed("demo") {
				cfg.DemoScenario = play.DemoScenario
			}
			if f.Changed("ascii") {
				cfg.ASCIIOnly = play.ASCIIOnly
			}
			if f.Changed("debug") {
				cfg.Debug = play.Debug
			}
			if f.Changed("style") {
				cfg.UI.StyleVariant = style
			}
			if f.Changed("motion") {
				cfg.UI.MotionLevel = mot
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runPlay(cmd.Context(), cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&fv.dataDir, "data-dir", "", "directory holding state.db (default ~/.local/share/picturemission)")
	pf.StringVar(&fv.logPath, "log", "", "append JSON logs to this file")
	pf.StringVar(&fv.catalog, "catalog", "", "mission/prize catalog YAML (default built-in)")
	pf.StringVar(&fv.stateKey, "state-key", "", "key the progress document is stored under")
	pf.BoolVar(&fv.memory, "memory", false, "keep progress in memory only")
	pf.BoolVar(&fv.prizes, "prizes", true, "enable the prize picker (overrides the catalog)")

	f := root.Flags()
	f.BoolVar(&play.Dev, "dev", false, "start the localhost dev server")
	f.StringVar(&play.DevHTTP, "dev-http", "", "dev server listen address")
	f.StringVar(&play.DemoScenario, "demo", "", "seed a demo scenario on start (dev mode)")
	f.BoolVar(&play.ASCIIOnly, "ascii", false, "avoid emoji and box-drawing glyphs")
	f.BoolVar(&play.Debug, "debug", false, "show layout debug info")
	f.StringVar(&style, "style", "", "modern_arcade, cozy_clean or retro_terminal")
	f.StringVar(&mot, "motion", "", "off, reduced or full")

	root.AddCommand(
		newStatusCmd(&fv),
		newResetCmd(&fv),
		newSetupCmd(&fv),
		newCatalogCmd(),
	)
	return root
}

func loadConfig(cmd *cobra.Command, fv flagValues) (app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, err
	}
	f := cmd.Flags()
	if f.Changed("data-dir") {
		cfg.DataDir = fv.dataDir
	}
	if f.Changed("log") {
		cfg.LogPath = fv.logPath
	}
	if f.Changed("catalog") {
		cfg.CatalogPath = fv.catalog
	}
	if f.Changed("state-key") {
		cfg.StateKey = fv.stateKey
	}
	if f.Changed("memory") {
		cfg.Memory = fv.memory
	}
	if f.Changed("prizes") {
		enabled := fv.prizes
		cfg.EnablePrizes = &enabled
	}
	return cfg, nil
}

func runPlay(ctx context.Context, cfg app.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

func openSession(cmd *cobra.Command, fv *flagValues) (*app.Session, error) {
	cfg, err := loadConfig(cmd, *fv)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.OpenSession(cmd.Context(), cfg)
}

func newStatusCmd(fv *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print mission, puzzle and prize progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, fv)
			if err != nil {
				return err
			}
			defer s.Close()
			rep, err := s.Status(cmd.Context())
			if err != nil {
				return err
			}
			rep.Write(cmd.OutOrStdout())
			return nil
		},
	}
}

func newResetCmd(fv *flagValues) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all progress and start over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				err := huh.NewConfirm().
					Title("Start over?").
					Description("All missions, puzzle pieces and prizes will be erased.").
					Affirmative("Erase").
					Negative("Keep").
					Value(&yes).
					Run()
				if err != nil {
					return err
				}
			}
			if !yes {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed.")
				return nil
			}
			s, err := openSession(cmd, fv)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Progress erased.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newSetupCmd(fv *flagValues) *cobra.Command {
	var ref string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Choose the secret photo the puzzle is cut from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, fv)
			if err != nil {
				return err
			}
			defer s.Close()

			if ref == "" {
				grid := s.Catalog.GridSize
				form := huh.NewForm(huh.NewGroup(
					huh.NewInput().
						Title("Photo path").
						Description(fmt.Sprintf("PNG, JPEG or GIF. It will be cut into a %dx%d puzzle.", grid, grid)).
						Placeholder("~/Pictures/family.jpg").
						Value(&ref).
						Validate(func(v string) error {
							_, err := photo.Validate(v, grid)
							return err
						}),
				))
				if err := form.Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return nil
					}
					return err
				}
			}

			info, err := s.Setup(cmd.Context(), ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Photo saved: %s %dx%d, %d pieces ready to win.\n",
				info.Format, info.Width, info.Height, s.Catalog.TotalPieces)
			return nil
		},
	}
	cmd.Flags().StringVar(&ref, "photo", "", "photo path (skips the form)")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect mission catalogs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate a catalog and list missions without a mini-game",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			cat, missing, err := app.CheckCatalog(cmd.Context(), path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d missions, %d prizes, %dx%d grid\n",
				cat.Title, len(cat.Missions), len(cat.Prizes), cat.GridSize, cat.GridSize)
			for _, m := range missing {
				fmt.Fprintf(out, "  mission %d (%s): no mini-game for %q\n", m.ID, m.Name, m.Capability)
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d missions are not playable", len(missing))
			}
			return nil
		},
	})
	return cmd
}
