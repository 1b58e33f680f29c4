package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if year := c.Library.DefaultReleaseYear; year != 0 {
		if year < 1000 || year > time.Now().Year()+1 {
			return fmt.Errorf("library.default_release_year %d is not a plausible year", year)
		}
	}
	switch c.Library.DefaultAlbumType {
	case "album", "single", "ep", "compilation", "soundtrack":
		return nil
	default:
		return fmt.Errorf("library.default_album_type %q is not a known album type", c.Library.DefaultAlbumType)
	}
}
