package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-crawl/internal/overlay"
)

type OverlayConfig struct {
	Enabled      bool   `json:"enabled"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	StartTimeout string `json:"start_timeout"`
}

func (c *OverlayConfig) Validate() error {
	el := errors.NewErrorList()

	if c.StartTimeout != "" {
		_, err := time.ParseDuration(c.StartTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing start_timeout: %w", err))
		}
	}
	if c.Port < 0 || c.Port > 65535 {
		el.Add(fmt.Errorf("port must be a valid tcp port"))
	}

	return el.Err()
}

func (c *OverlayConfig) buildServer() (*overlay.Server, error) {
	var opts []overlay.ServerOpt
	if c.StartTimeout != "" {
		d, err := time.ParseDuration(c.StartTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing start_timeout: %w", err)
		}
		opts = append(opts, overlay.WithStartTimeout(d))
	}
	if c.Host != "" {
		opts = append(opts, overlay.WithHost(c.Host))
	}
	if c.Port != 0 {
		opts = append(opts, overlay.WithPort(c.Port))
	}

	return overlay.NewServer(opts...)
}
