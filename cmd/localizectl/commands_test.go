package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("STORAGE_PROVIDER", "fs")
	t.Setenv("STORAGE_ROOT", root)
	t.Setenv("SOURCE_LANGUAGE", "en")
	t.Setenv("SUPPORTED_LANGUAGES", "en,id,hi")
	t.Setenv("LANGUAGES_FILE", "")
	t.Setenv("STT_PROVIDER", "mock")
	t.Setenv("STT_STREAMING_PROVIDER", "")
	t.Setenv("TRANSLATE_PROVIDER", "mock")
	t.Setenv("TTS_PROVIDER", "mock")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("RABBITMQ_ENABLED", "false")
	t.Setenv("PIPELINE_WORK_DIR", t.TempDir())
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLanguagesCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "languages")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"English", "Indonesian", "Hindi", "source", "target"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestLanguagesCommand_FileFlag(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "langs.toml")
	os.WriteFile(path, []byte("source_language = \"en\"\nsupported_languages = [\"en\", \"ta\"]\n"), 0o644)

	out, err := run(t, "--languages", path, "languages")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Tamil") || strings.Contains(out, "Hindi") {
		t.Errorf("expected languages from file:\n%s", out)
	}
}

func TestPathsCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "paths", "course42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"audio/course42_audio.wav",
		"caption/course42_en.txt",
		"caption/course42_id.txt",
		"audio/course42_hi.mp3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "course42_en.mp3") {
		t.Error("source language has no dubbed audio")
	}

	if _, err := run(t, "paths", "../etc"); err == nil {
		t.Error("expected error for unsafe course id")
	}
}

func TestCaptionCommand(t *testing.T) {
	root := setupEnv(t)
	dir := filepath.Join(root, "caption")
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "course42_id.txt"), []byte("halo dunia"), 0o644)

	out, err := run(t, "caption", "course42", "id-ID")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "halo dunia" {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := run(t, "caption", "course42", "hi"); err == nil {
		t.Error("expected error for a caption that was not produced")
	}
	if _, err := run(t, "caption", "course42", "fr"); err == nil {
		t.Error("expected error for unsupported language")
	}
}

func TestProcessCommand_SkipsNonVideo(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "process", "notes/readme.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "skipped notes/readme.txt") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestProcessCommand_MissingVideo(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "process", "course9_course9.mp4")
	if err == nil {
		t.Fatal("expected error for a video that is not in the store")
	}
	if !strings.Contains(out, "course course9: failed") {
		t.Errorf("unexpected output %q", out)
	}
}
