package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCommand()

	for _, name := range []string{"serve", "stats"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("expected subcommand %s, got %v (err %v)", name, cmd, err)
		}
	}
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("POOL_SERVER_WORKERS", "0")

	root := newRootCommand()
	root.SetArgs([]string{"serve"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "workers must be positive") {
		t.Errorf("expected workers validation error, got %v", err)
	}
}

func TestStatsUnreachableControl(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"stats", "--control", "127.0.0.1:1", "--timeout", "200ms"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	if err := root.Execute(); err == nil {
		t.Error("expected error when the control service is unreachable")
	}
}
