package command

import (
	"fmt"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-crawl/internal/runlog"
	"github.com/pixil98/go-crawl/internal/storage"
)

type StorageConfig struct {
	Runs AssetConfig[*runlog.Run] `json:"runs"`
}

func (c *StorageConfig) Validate() error {
	el := errors.NewErrorList()
	el.Add(c.Runs.Validate("runs"))
	return el.Err()
}

func (c *StorageConfig) buildRunTracker() (*runlog.Tracker, error) {
	store, err := c.Runs.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating run store: %w", err)
	}
	return runlog.NewTracker(store), nil
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
