package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"picturemission/internal/catalog"
	"picturemission/internal/minigame"
	"picturemission/internal/photo"
	"picturemission/internal/progress"
	"picturemission/internal/state"
	"picturemission/internal/telemetry"
)

// Session opens the stores and catalog without a terminal UI. The CLI
// subcommands use it.
type Session struct {
	Catalog catalog.Catalog
	Keeper  *progress.Keeper
	// History is nil in memory mode.
	History state.Store
	logger  *telemetry.JSONLogger
}

func OpenSession(ctx context.Context, cfg Config) (*Session, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	logger, err := telemetry.NewJSONLogger(cfg.LogPath)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.NewLoader(minigame.DefaultRegistry(), logger).Load(ctx, cfg.CatalogPath)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if cfg.EnablePrizes != nil {
		enabled := *cfg.EnablePrizes
		cat.EnablePrizes = &enabled
	}

	kv, history, err := openStores(ctx, cfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	s := &Session{Catalog: cat, History: history, logger: logger}
	key := cfg.StateKey
	if key == "" {
		key = progress.DefaultStateKey
	}
	s.Keeper = progress.NewKeeper(kv, key, cat, logger)
	s.Keeper.Load(ctx)
	return s, nil
}

func (s *Session) Close() {
	if s.History != nil {
		_ = s.History.Close()
	}
	_ = s.logger.Close()
}

// StatusReport summarises stored progress for `picturemission status`.
type StatusReport struct {
	Title          string
	PhotoReference string
	Completed      int
	TotalMissions  int
	Placed         int
	TotalPieces    int
	TotalPoints    int
	NextMission    string
	FinalReady     bool
	Prizes         []string
	Confirmed      bool
	Runs           state.Summary
}

func (s *Session) Status(ctx context.Context) (StatusReport, error) {
	doc := s.Keeper.Snapshot()
	ctrl := progress.NewController(s.Keeper)
	tracker := progress.NewTracker(s.Keeper)

	rep := StatusReport{
		Title:          s.Catalog.Title,
		PhotoReference: doc.PhotoReference,
		Completed:      len(doc.CompletedMissionIDs),
		TotalMissions:  len(s.Catalog.Missions),
		Placed:         len(doc.PlacedPieces),
		TotalPieces:    s.Catalog.TotalPieces,
		TotalPoints:    doc.TotalPoints,
		FinalReady:     tracker.FinalRevealReady(),
		Confirmed:      doc.PrizesConfirmed,
	}
	if id, ok := ctrl.NextEligibleMissionID(); ok {
		if m, found := s.Catalog.Mission(id); found {
			rep.NextMission = fmt.Sprintf("%d. %s", m.ID, m.Name)
		}
	}
	for _, id := range doc.SelectedPrizeIDs {
		if p, ok := s.Catalog.Prize(id); ok {
			rep.Prizes = append(rep.Prizes, p.Name)
		}
	}
	if s.History != nil {
		sum, err := s.History.GetSummary(ctx)
		if err != nil {
			return rep, fmt.Errorf("mission history: %w", err)
		}
		rep.Runs = sum
	}
	return rep, nil
}

func (r StatusReport) Write(w io.Writer) {
	fmt.Fprintf(w, "%s\n", r.Title)
	photoRef := r.PhotoReference
	if photoRef == "" {
		photoRef = "(not set up yet)"
	}
	fmt.Fprintf(w, "  photo:     %s\n", photoRef)
	fmt.Fprintf(w, "  missions:  %d/%d\n", r.Completed, r.TotalMissions)
	fmt.Fprintf(w, "  puzzle:    %d/%d pieces placed\n", r.Placed, r.TotalPieces)
	fmt.Fprintf(w, "  points:    %d\n", r.TotalPoints)
	if r.NextMission != "" {
		fmt.Fprintf(w, "  next:      %s\n", r.NextMission)
	}
	if r.FinalReady {
		fmt.Fprintf(w, "  reveal:    ready\n")
	}
	if len(r.Prizes) > 0 {
		label := "selected"
		if r.Confirmed {
			label = "confirmed"
		}
		fmt.Fprintf(w, "  prizes:    %s (%s)\n", strings.Join(r.Prizes, ", "), label)
	}
	if r.Runs.MissionRuns > 0 {
		fmt.Fprintf(w, "  history:   %d runs, %d won, %d failed, %d abandoned, best %d\n",
			r.Runs.MissionRuns, r.Runs.Completions, r.Runs.Failures, r.Runs.Abandons, r.Runs.BestScore)
	}
}

// Reset discards progress and mission history.
func (s *Session) Reset(ctx context.Context) error {
	s.Keeper.Reset(ctx)
	if s.History != nil {
		if err := s.History.ClearMissionRuns(ctx); err != nil {
			return fmt.Errorf("clear mission history: %w", err)
		}
	}
	s.logger.Info("progress.reset", map[string]any{"source": "cli"})
	return nil
}

// Setup validates ref against the catalog grid and stores it as the puzzle
// photo.
func (s *Session) Setup(ctx context.Context, ref string) (photo.Info, error) {
	ref = strings.TrimSpace(ref)
	info, err := photo.Validate(ref, s.Catalog.GridSize)
	if err != nil {
		return photo.Info{}, err
	}
	s.Keeper.Setup(ctx, ref)
	s.logger.Info("setup.complete", map[string]any{"source": "cli", "format": info.Format})
	return info, nil
}

// CheckCatalog loads path and reports missions whose mini-game is missing.
func CheckCatalog(ctx context.Context, path string) (catalog.Catalog, []catalog.Mission, error) {
	cat, err := catalog.NewLoader(minigame.DefaultRegistry(), nil).Load(ctx, path)
	if err != nil {
		return catalog.Catalog{}, nil, err
	}
	return cat, cat.UnplayableMissions(), nil
}
