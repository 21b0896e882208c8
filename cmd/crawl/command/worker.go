package command

import (
	"fmt"

	"github.com/pixil98/go-service"

	"github.com/pixil98/go-crawl/internal/overlay"
	"github.com/pixil98/go-crawl/internal/runner"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	workers := service.WorkerList{}

	// Create the overlay bus and publisher when enabled
	var publisher *overlay.Publisher
	if cfg.Overlay.Enabled {
		server, err := cfg.Overlay.buildServer()
		if err != nil {
			return nil, fmt.Errorf("creating overlay bus: %w", err)
		}
		workers["overlay"] = server
		publisher = overlay.NewPublisher(server)
	}

	// Create the run tracker
	tracker, err := cfg.Storage.buildRunTracker()
	if err != nil {
		return nil, fmt.Errorf("creating run tracker: %w", err)
	}

	// Setup the play runner
	workers["runner"] = runner.NewRunner(runner.Config{
		URL:             cfg.Server.URL,
		Username:        cfg.Server.Username,
		Password:        cfg.Server.Password,
		GameID:          cfg.Game.ID,
		Species:         cfg.Game.Species,
		Background:      cfg.Game.Background,
		Weapon:          cfg.Game.Weapon,
		DispatchTimeout: cfg.Game.dispatchTimeout(),
		NarrateEvery:    cfg.Game.NarrateEvery,
		MaxRuns:         cfg.Game.MaxRuns,
		Autoplay:        cfg.Autoplay.options(),
	}, tracker, publisher)

	return workers, nil
}
