package config

import "path/filepath"

const (
	defaultMusicDir     = "~/music"
	defaultDataDir      = "~/.local/share/cadenza"
	defaultLogDir       = "~/.local/share/cadenza/logs"
	defaultDatabaseFile = "library.db"
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultAlbumType    = "album"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MusicDir: defaultMusicDir,
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
		},
		Library: Library{
			DefaultAlbumType: defaultAlbumType,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DatabasePath returns the resolved library database location.
func (c *Config) DatabasePath() string {
	if c.Paths.DatabasePath != "" {
		return c.Paths.DatabasePath
	}
	return filepath.Join(c.Paths.DataDir, defaultDatabaseFile)
}
