package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-crawl/internal/autoplay"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Game     GameConfig     `json:"game"`
	Overlay  OverlayConfig  `json:"overlay"`
	Storage  StorageConfig  `json:"storage"`
	Autoplay AutoplayConfig `json:"autoplay"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	el.Add(c.Server.Validate())
	el.Add(c.Game.Validate())
	el.Add(c.Overlay.Validate())
	el.Add(c.Storage.Validate())
	el.Add(c.Autoplay.Validate())

	return el.Err()
}

type ServerConfig struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *ServerConfig) Validate() error {
	el := errors.NewErrorList()

	if c.URL == "" {
		el.Add(fmt.Errorf("url is required"))
	}
	if c.Username == "" {
		el.Add(fmt.Errorf("username is required"))
	}
	if c.Password == "" {
		el.Add(fmt.Errorf("password is required"))
	}

	return el.Err()
}

type GameConfig struct {
	ID         string `json:"id"`
	Species    string `json:"species"`
	Background string `json:"background"`
	Weapon     string `json:"weapon"`

	DispatchTimeout string `json:"dispatch_timeout"`
	NarrateEvery    int    `json:"narrate_every"`
	MaxRuns         int    `json:"max_runs"`
}

func (c *GameConfig) Validate() error {
	el := errors.NewErrorList()

	if c.Species == "" {
		el.Add(fmt.Errorf("species is required"))
	}
	if c.Background == "" {
		el.Add(fmt.Errorf("background is required"))
	}
	if c.DispatchTimeout != "" {
		if _, err := time.ParseDuration(c.DispatchTimeout); err != nil {
			el.Add(fmt.Errorf("parsing dispatch_timeout: %w", err))
		}
	}
	if c.NarrateEvery < 0 {
		el.Add(fmt.Errorf("narrate_every must not be negative"))
	}

	return el.Err()
}

func (c *GameConfig) dispatchTimeout() time.Duration {
	if c.DispatchTimeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.DispatchTimeout)
	return d
}

type AutoplayConfig struct {
	HPStopPercent  int  `json:"hp_stop_percent"`
	MaxActions     int  `json:"max_actions"`
	StopOnPickup   bool `json:"stop_on_pickup"`
	StopOnAltar    bool `json:"stop_on_altar"`
	AutoDescend    bool `json:"auto_descend"`
	NonTrivialStop int  `json:"non_trivial_stop"`
}

func (c *AutoplayConfig) Validate() error {
	el := errors.NewErrorList()

	if c.HPStopPercent < 0 || c.HPStopPercent > 100 {
		el.Add(fmt.Errorf("hp_stop_percent must be between 0 and 100"))
	}
	if c.MaxActions < 0 {
		el.Add(fmt.Errorf("max_actions must not be negative"))
	}

	return el.Err()
}

func (c *AutoplayConfig) options() autoplay.Options {
	return autoplay.Options{
		HPStopPercent:  c.HPStopPercent,
		MaxActions:     c.MaxActions,
		StopOnPickup:   c.StopOnPickup,
		StopOnAltar:    c.StopOnAltar,
		AutoDescend:    c.AutoDescend,
		NonTrivialStop: c.NonTrivialStop,
	}
}
