package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salarysys/payrun/internal/cli"
	"github.com/salarysys/payrun/pkg/version"
)

func TestRun(t *testing.T) {
	// run reads os.Args, so only check it is wired.
	t.Run("run function exists", func(t *testing.T) {
		_ = run
	})
}

func TestMainComponents(t *testing.T) {
	t.Run("version available", func(t *testing.T) {
		assert.NotEmpty(t, version.GetVersion())
	})

	t.Run("cli root command", func(t *testing.T) {
		root := cli.NewRootCmd(version.GetVersion())
		require.NotNil(t, root)
		assert.Equal(t, "payrun", root.Use)
		assert.Equal(t, version.GetVersion(), root.Version)
	})
}
