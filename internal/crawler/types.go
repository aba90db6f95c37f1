package crawler

import (
	"time"

	"sjsage522/silkdeal/internal/pager"
)

// Target is one listing to crawl: a profile and the URL its run starts at.
type Target struct {
	Name    string
	URL     string
	Profile pager.Profile
}

// ProfileConfig is the YAML form of a profile plus its start URL.
type ProfileConfig struct {
	Name          string            `yaml:"name"`
	StartURL      string            `yaml:"start_url"`
	BaseURL       string            `yaml:"base_url,omitempty"`
	ItemSelector  string            `yaml:"item_selector"`
	Fields        []pager.FieldSpec `yaml:"fields"`
	NextSelectors []string          `yaml:"next_selectors"`
	WaitTimeout   time.Duration     `yaml:"wait_timeout,omitempty"`
}

// ProfileFile is the document read from PROFILE_FILE.
type ProfileFile struct {
	Profiles []ProfileConfig `yaml:"profiles"`
}

// Target converts the configuration into a validated Target.
func (c ProfileConfig) Target() (Target, error) {
	profile := pager.Profile{
		Name:          c.Name,
		ItemSelector:  c.ItemSelector,
		Fields:        c.Fields,
		NextSelectors: c.NextSelectors,
		BaseURL:       c.BaseURL,
		WaitTimeout:   c.WaitTimeout,
	}
	if profile.BaseURL == "" {
		profile.BaseURL = c.StartURL
	}
	if err := profile.Validate(); err != nil {
		return Target{}, err
	}
	return Target{Name: c.Name, URL: c.StartURL, Profile: profile}, nil
}
