package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_Commands(t *testing.T) {
	cmd := App()

	var names []string
	for _, sub := range cmd.Commands {
		names = append(names, sub.Name)
	}
	assert.Equal(t, []string{"server", "worker", "migrate"}, names)
}

func TestApp_MigrateRejectsBadConfig(t *testing.T) {
	t.Setenv("JS_BROKER_DRIVER", "kafka")

	err := App().Run(context.Background(), []string{"jobstatus", "migrate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
