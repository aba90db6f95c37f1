package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/silkdeal/config"
)

func TestCrawlFlagsOverrideOnlyWhenSet(t *testing.T) {
	var flags crawlFlags
	cmd := &cobra.Command{Use: "crawl"}
	flags.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--profile", "a,b",
		"--max-pages", "4",
		"--headless=false",
		"--interval", "10m",
		"-o", "out.jsonl",
	}))

	cfg := &config.Config{
		Profiles:         []string{"slickdeals"},
		Headless:         true,
		StartURL:         "https://example.com",
		TransientRetries: 2,
		OutputFile:       "-",
	}
	flags.apply(cmd, cfg)

	assert.Equal(t, []string{"a", "b"}, cfg.Profiles)
	assert.Equal(t, 4, cfg.MaxPages)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 10*time.Minute, cfg.CrawlInterval)
	assert.Equal(t, "out.jsonl", cfg.OutputFile)

	assert.Equal(t, "https://example.com", cfg.StartURL)
	assert.Equal(t, 2, cfg.TransientRetries)
}

func TestProfilesCommandListsBuiltins(t *testing.T) {
	t.Setenv("PROFILE_FILE", "")

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"profiles"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "slickdeals\thttps://slickdeals.net/computer-deals")
}

func TestInitializeServicesDefaultsToJSONLines(t *testing.T) {
	cfg := testConfig(t, "https://example.com")

	services, err := initializeServices(t.Context(), cfg)
	require.NoError(t, err)
	defer services.Cleanup()

	assert.NotNil(t, services.Publisher)
	assert.Nil(t, services.Cache)
	assert.Nil(t, services.Proxies)
}
