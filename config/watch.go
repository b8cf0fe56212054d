package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// Watch reloads path whenever it changes and sends each valid config on
// the returned channel. The parent directory is watched so editors that
// replace the file on save are picked up. Invalid files are reported and
// skipped. The channel is closed when ctx is done.
func Watch(ctx context.Context, path string) (<-chan *Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expand %q", path)
	}
	expanded, err = filepath.Abs(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %q", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}
	if err := watcher.Add(filepath.Dir(expanded)); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "watch %q", filepath.Dir(expanded))
	}

	out := make(chan *Config, 1)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != expanded {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				cfg, err := Load(expanded)
				if err != nil {
					fmt.Printf("WARNING: config reload: %v\n", err)
					continue
				}
				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fmt.Printf("WARNING: config watcher: %v\n", err)
			}
		}
	}()
	return out, nil
}
