package cli

import (
	"bytes"
	"testing"
)

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	_, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	formatFlag := root.PersistentFlags().Lookup("format")
	if formatFlag == nil {
		t.Fatal("expected --format flag to exist")
	}
	if formatFlag.DefValue != "text" {
		t.Errorf("expected --format default 'text', got %q", formatFlag.DefValue)
	}

	dbFlag := root.PersistentFlags().Lookup("db")
	if dbFlag == nil {
		t.Fatal("expected --db flag to exist")
	}
}

func TestVersion(t *testing.T) {
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != Version+"\n" {
		t.Errorf("output = %q, want %q", out, Version+"\n")
	}
}

func TestArgValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"add without address", []string{"add"}},
		{"add without title", []string{"add", "1 Main St"}},
		{"show without id", []string{"show"}},
		{"show non-uuid id", []string{"show", "42"}},
		{"remove without id", []string{"remove"}},
		{"remove non-uuid id", []string{"remove", "abc"}},
		{"search without query", []string{"search"}},
		{"serve with extra args", []string{"serve", "extra"}},
		{"reindex with extra args", []string{"reindex", "extra"}},
		{"keys create without name", []string{"keys", "create", "--seller", "s1"}},
		{"keys create without seller", []string{"keys", "create", "laptop"}},
		{"keys delete non-numeric id", []string{"keys", "delete", "abc"}},
		{"list with args", []string{"list", "extra"}},
	}

	t.Setenv("HOME", t.TempDir())
	t.Setenv("LISTINGS_SELLER", "")
	t.Setenv("LISTINGS_CONFIG", "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParsePropertyID(t *testing.T) {
	id, err := parsePropertyID("6F9619FF-8B86-D011-B42D-00C04FC964FF")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != "6f9619ff-8b86-d011-b42d-00c04fc964ff" {
		t.Errorf("id = %q, want lower-case canonical form", id)
	}
}
