package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionInfo(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func() string{
		"version": getVersion,
		"commit":  getCommit,
		"date":    getDate,
	} {
		if fn() == "" {
			t.Errorf("%s returned empty string", name)
		}
	}
}

func TestBuildSettingMissingKey(t *testing.T) {
	t.Parallel()

	if _, ok := buildSetting("no.such.setting"); ok {
		t.Error("expected unknown build setting to be absent")
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"tunguard version", "commit:", "built:", "platform:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	}
}
