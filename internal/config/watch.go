package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch reloads the config at path whenever the file is written and passes
// each valid result to onChange. Edits that fail to load or validate go to
// onError and the previous config stays in effect. The watch lasts for the
// life of the process.
func Watch(path string, onChange func(*Config), onError func(error)) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// viper only reports writes and creates of path, or a swapped symlink.
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := Load(path)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}
