package deps

import (
	"context"
	"slices"
	"testing"

	"whispersub/internal/config"
	"whispersub/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := testsupport.WriteScript(t, binDir, "present", "echo 'present 1.2.3'\necho extra\n")
	reqs := []Requirement{
		{Name: "Present", Command: present, VersionArgs: []string{"--version"}},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(context.Background(), reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Version != "present 1.2.3" {
		t.Fatalf("unexpected version %q", results[0].Version)
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail: %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank detail: %q", results[2].Detail)
	}

	missing := MissingRequired(results)
	if !slices.Equal(missing, []string{"Missing"}) {
		t.Fatalf("unexpected missing list: %v", missing)
	}
}

func TestCheckBinariesVersionFailureIsEmpty(t *testing.T) {
	failing := testsupport.WriteScript(t, t.TempDir(), "failing", "exit 3\n")
	results := CheckBinaries(context.Background(), []Requirement{{Name: "F", Command: failing, VersionArgs: []string{"-v"}}})
	if !results[0].Available || results[0].Version != "" {
		t.Fatalf("unexpected result: %#v", results[0])
	}
}

func TestRequirementsUseConfiguredBinaries(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.FFmpeg = "/opt/ffmpeg/bin/ffmpeg"
	reqs := Requirements(&cfg)
	names := make([]string, 0, len(reqs))
	for _, req := range reqs {
		names = append(names, req.Name)
	}
	if !slices.Equal(names, []string{"yt-dlp", "FFmpeg", "uvx"}) {
		t.Fatalf("unexpected requirements: %v", names)
	}
	if reqs[1].Command != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected configured ffmpeg, got %q", reqs[1].Command)
	}
	if got := Requirements(nil)[0].Command; got != "yt-dlp" {
		t.Fatalf("expected default yt-dlp, got %q", got)
	}
}

func TestCheckBinariesWithStubbedPath(t *testing.T) {
	testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	results := CheckBinaries(context.Background(), Requirements(nil))
	if missing := MissingRequired(results); len(missing) != 0 {
		t.Fatalf("stubbed tools should resolve, missing %v", missing)
	}
}
