package daemon

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/wolfizen/ddnswolf/conf"
)

// watchConfig triggers an immediate pass when the config file changes.
// Record definitions are only re-read on restart; the trigger mostly serves
// operators who edit the file and expect something to happen right away.
func watchConfig(d *daemon) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Err(err).Msg("create config watcher failed")
		return
	}
	// Watch the directory: editors and config management tools replace the
	// file rather than writing in place.
	if err := watcher.Add(filepath.Dir(conf.Path)); err != nil {
		log.Err(err).Str("path", conf.Path).Msg("watch config dir failed")
		watcher.Close()
		return
	}
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(conf.Path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				log.Warn().Msg("config file changed on disk, restart to apply new records")
				d.Trigger("config change")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Err(err).Msg("config watcher error")
			}
		}
	}()
}
