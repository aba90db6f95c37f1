package crawler

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"sjsage522/silkdeal/config"
	"sjsage522/silkdeal/internal/pager"
	"sjsage522/silkdeal/logger"
	crawlerrors "sjsage522/silkdeal/pkg/errors"
)

// Slickdeals is the built-in profile for the slickdeals.net deal grids.
var Slickdeals = ProfileConfig{
	Name:         "slickdeals",
	StartURL:     "https://slickdeals.net/computer-deals",
	BaseURL:      "https://slickdeals.net",
	ItemSelector: `ul[class="bp-p-filterGrid_items"] > li`,
	Fields: []pager.FieldSpec{
		{Name: "title", Selector: `a[class="bp-c-card_title bp-c-link"]`},
		{Name: "url", Selector: `a[class="bp-c-card_title bp-c-link"]`, Attr: "href"},
		{Name: "store", Selector: `span[class="bp-c-card_subtitle"]`},
		{Name: "price", Selector: `span[class="bp-p-dealCard_price"]`},
	},
	NextSelectors: []string{`button[aria-label="next"]`, `button[data-page="next"]`},
}

// Builtins returns the profiles compiled into the binary, by name.
func Builtins() map[string]ProfileConfig {
	return map[string]ProfileConfig{
		Slickdeals.Name: Slickdeals,
	}
}

// LoadProfiles reads profiles from a YAML file.
func LoadProfiles(path string) ([]ProfileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, crawlerrors.NewConfiguration("read profile file", err)
	}
	var file ProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, crawlerrors.NewConfiguration("parse profile file "+path, err)
	}
	return file.Profiles, nil
}

// Catalog merges the built-in profiles with those of cfg.ProfileFile.
// File profiles replace built-ins of the same name.
func Catalog(cfg *config.Config) (map[string]ProfileConfig, error) {
	catalog := Builtins()
	if cfg.ProfileFile == "" {
		return catalog, nil
	}
	loaded, err := LoadProfiles(cfg.ProfileFile)
	if err != nil {
		return nil, err
	}
	for _, p := range loaded {
		catalog[p.Name] = p
	}
	return catalog, nil
}

// Names returns the catalog's profile names in sorted order.
func Names(catalog map[string]ProfileConfig) []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateTargets builds the targets selected by cfg.Profiles.
func CreateTargets(cfg *config.Config) ([]Target, error) {
	catalog, err := Catalog(cfg)
	if err != nil {
		return nil, err
	}

	targets := make([]Target, 0, len(cfg.Profiles))
	for _, name := range cfg.Profiles {
		pc, ok := catalog[name]
		if !ok {
			return nil, crawlerrors.NewConfiguration(fmt.Sprintf("unknown profile %q", name), nil)
		}
		if cfg.StartURL != "" {
			pc.StartURL = cfg.StartURL
		}
		if cfg.WaitTimeout > 0 && pc.WaitTimeout == 0 {
			pc.WaitTimeout = cfg.WaitTimeout
		}
		if pc.StartURL == "" {
			return nil, crawlerrors.NewConfiguration(fmt.Sprintf("profile %q has no start URL", name), nil)
		}
		target, err := pc.Target()
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}

	log := logger.ForWorker()
	for i, t := range targets {
		log.Debug().
			Int("index", i).
			Str("profile", t.Name).
			Str("url", t.URL).
			Msg("Created target")
	}
	return targets, nil
}
