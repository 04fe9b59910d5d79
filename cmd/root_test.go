package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"fetch", "generate", "gazetteer", "zips", "geocode", "merge", "colorize", "render", "export", "serve", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "demomap", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestFetchCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range fetchCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["tracts"])
	assert.True(t, names["zctas"])

	for _, flagName := range []string{"out", "fallback", "boundaries"} {
		assert.NotNil(t, fetchZCTAsCmd.Flags().Lookup(flagName), "fetch zctas should have --%s", flagName)
	}
}

func TestRenderCommand_Flags(t *testing.T) {
	style := renderCmd.Flags().Lookup("style")
	require.NotNil(t, style)
	assert.Equal(t, "polygon", style.DefValue)

	kind := renderCmd.Flags().Lookup("kind")
	require.NotNil(t, kind)
	assert.Equal(t, "zip", kind.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestGenerateCommand_Flags(t *testing.T) {
	flag := generateCmd.Flags().Lookup("seed")
	require.NotNil(t, flag)
	assert.Equal(t, "42", flag.DefValue)
}
