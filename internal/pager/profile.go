package pager

import (
	"strings"
	"time"

	crawlerrors "sjsage522/silkdeal/pkg/errors"
)

// DefaultWaitTimeout bounds every wait of the advance phase.
const DefaultWaitTimeout = 3 * time.Second

// FieldSpec describes how one record field is read from an item node.
// The first node matching Selector is used; its text when Attr is empty,
// otherwise the named attribute.
type FieldSpec struct {
	Name     string `yaml:"name"`
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr,omitempty"`
}

// Profile holds the selectors of one listing site.
type Profile struct {
	Name         string      `yaml:"name"`
	ItemSelector string      `yaml:"item_selector"`
	Fields       []FieldSpec `yaml:"fields"`

	// NextSelectors are alternatives; any clickable match is the next control.
	NextSelectors []string `yaml:"next_selectors"`

	// BaseURL resolves relative href/src values when set.
	BaseURL string `yaml:"base_url,omitempty"`

	WaitTimeout time.Duration `yaml:"wait_timeout,omitempty"`
}

// NextSelector joins the alternatives into a single CSS selector list.
func (p Profile) NextSelector() string {
	return strings.Join(p.NextSelectors, ", ")
}

// Timeout returns the profile's wait timeout or DefaultWaitTimeout.
func (p Profile) Timeout() time.Duration {
	if p.WaitTimeout > 0 {
		return p.WaitTimeout
	}
	return DefaultWaitTimeout
}

// Validate checks that the profile can drive a pagination loop.
func (p Profile) Validate() error {
	if p.Name == "" {
		return crawlerrors.NewValidation("", "profile name is required")
	}
	if p.ItemSelector == "" {
		return crawlerrors.NewValidation(p.Name, "item selector is required")
	}
	if len(p.Fields) == 0 {
		return crawlerrors.NewValidation(p.Name, "at least one field is required")
	}
	seen := make(map[string]bool, len(p.Fields))
	for _, f := range p.Fields {
		if f.Name == "" || f.Selector == "" {
			return crawlerrors.NewValidation(p.Name, "field name and selector are required")
		}
		if seen[f.Name] {
			return crawlerrors.NewValidation(p.Name, "duplicate field "+f.Name)
		}
		seen[f.Name] = true
	}
	if len(p.NextSelectors) == 0 {
		return crawlerrors.NewValidation(p.Name, "at least one next selector is required")
	}
	return nil
}
