package main

import (
	"io"
	"testing"
)

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	flag := cmd.Flags().Lookup("config")
	if flag == nil {
		t.Fatal("--config flag is missing")
	}
	if flag.DefValue != "" {
		t.Fatalf("--config default = %q, want empty (resolved at startup)", flag.DefValue)
	}
}

func TestRootCommandRejectsArguments(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"unexpected"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for positional arguments")
	}
}
