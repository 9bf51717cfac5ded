package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Credit is a labeled link shown under the sidebar list.
type Credit struct {
	Label string `yaml:"label" json:"label"`
	Name  string `yaml:"name" json:"name"`
	URL   string `yaml:"url" json:"url"`
}

// MapProfile describes what the page hands to the map library and the static
// text around the list.
type MapProfile struct {
	// Center is [lat, lon].
	Center      [2]float64 `yaml:"center" json:"center"`
	Zoom        int        `yaml:"zoom" json:"zoom"`
	TileURL     string     `yaml:"tile_url" json:"tile_url"`
	Attribution string     `yaml:"attribution" json:"attribution"`
	Heading     string     `yaml:"heading" json:"heading"`
	Credits     []Credit   `yaml:"credits" json:"credits"`
}

// DefaultMapProfile centers on British Columbia with OpenStreetMap tiles.
func DefaultMapProfile() MapProfile {
	return MapProfile{
		Center:      [2]float64{53.7267, -127.6476},
		Zoom:        6,
		TileURL:     "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		Heading:     "DriveBC Major Events",
		Credits: []Credit{
			{Label: "Data source", Name: "DriveBC", URL: "https://www.drivebc.ca/"},
			{Label: "Author", Name: "Ron Li", URL: "https://www.linkedin.com/in/rongpengli/"},
		},
	}
}

// LoadMapProfile overlays the YAML document at path onto DefaultMapProfile.
// An empty path returns the defaults.
func LoadMapProfile(path string) (MapProfile, error) {
	profile := DefaultMapProfile()
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return MapProfile{}, fmt.Errorf("read map profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return MapProfile{}, fmt.Errorf("parse map profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return MapProfile{}, err
	}
	return profile, nil
}

// Validate rejects profiles the map library cannot use.
func (p MapProfile) Validate() error {
	lat, lon := p.Center[0], p.Center[1]
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("map profile center out of range: %v", p.Center)
	}
	if p.Zoom < 0 || p.Zoom > 19 {
		return fmt.Errorf("map profile zoom out of range: %d", p.Zoom)
	}
	if p.TileURL == "" {
		return errors.New("map profile tile_url is required")
	}
	return nil
}
