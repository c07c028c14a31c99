package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// InitializeSchedules starts the workspace sweeper, returns nil when sweeping is disabled
func (serverHandler *ServerHandler) InitializeSchedules() *cron.Cron {
	serverConfig := serverHandler.ServerConfig
	if serverConfig.SweepInterval <= 0 {
		Logger.Info("Workspace sweeper disabled")
		return nil
	}
	maxAge := time.Duration(serverConfig.SweepMaxAge) * time.Minute

	c := cron.New()
	var sweepJob cron.Job
	sweepJob = cron.FuncJob(func() { sweepJobFunc(serverConfig.TempRoot, maxAge) })
	sweepJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(sweepJob) //ensure we don't kick off another if old one is still running
	if _, err := c.AddJob(fmt.Sprintf("@every %dm", serverConfig.SweepInterval), sweepJob); err != nil {
		Logger.Error("Unable to schedule workspace sweeper", "error", err)
		return nil
	}
	Logger.Info("Adding workspace sweeper", "interval_minutes", serverConfig.SweepInterval, "max_age", maxAge)
	c.Start()
	return c
}

func sweepJobFunc(tempRoot string, maxAge time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in sweeper job", "panic", r)
		}
	}()

	removed, err := SweepWorkspaces(tempRoot, maxAge, time.Now())
	if err != nil {
		Logger.Error("Workspace sweep failed", "tempRoot", tempRoot, "error", err)
		return
	}
	Logger.Debug("Workspace sweep finished", "tempRoot", tempRoot, "removed", removed)
}

// SweepWorkspaces removes workspaces under tempRoot created more than maxAge before now.
// The creation time comes from the ULID directory name; anything else is left alone.
func SweepWorkspaces(tempRoot string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(tempRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := ulid.ParseStrict(entry.Name())
		if err != nil {
			continue
		}
		if now.Sub(ulid.Time(id.Time())) < maxAge {
			continue
		}
		path := filepath.Join(tempRoot, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			Logger.Warn("Unable to remove stale workspace", "path", path, "error", err)
			continue
		}
		Logger.Info("Removed stale workspace", "path", path)
		removed++
	}
	return removed, nil
}
