package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/internal/history"
	"github.com/dgnsrekt/narrator/tts/pipeline"
)

func TestReportMarkdown(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dub.wav")
	if err := os.WriteFile(out, make([]byte, 2048), 0o600); err != nil {
		t.Fatal(err)
	}
	res := &pipeline.Result{
		Mode:     pipeline.ModeSubtitle,
		Output:   out,
		Duration: 83 * time.Second,
		Budget:   90 * time.Second,
		Speed:    1.3,
		Skipped:  1,
		Total:    1200,
		Elapsed:  4 * time.Second,
		Warnings: []string{"cue 7 was replaced by silence"},
	}

	md := ReportMarkdown(res)
	for _, want := range []string{out, "2.0 kB", "1:23 of 1:30", "1.3x", "1 of 1,200 cues", "4s", "## Warnings", "cue 7"} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q:\n%s", want, md)
		}
	}
}

func TestReportMarkdownText(t *testing.T) {
	md := ReportMarkdown(&pipeline.Result{Mode: pipeline.ModeText, Speed: 1, Total: 3})
	if strings.Contains(md, "Output") || strings.Contains(md, "Warnings") || strings.Contains(md, "allowed") {
		t.Errorf("unexpected sections:\n%s", md)
	}
	if !strings.Contains(md, "0 of 3 chunks") {
		t.Errorf("report:\n%s", md)
	}
}

func TestRenderReport(t *testing.T) {
	got, err := RenderReport(&pipeline.Result{Mode: pipeline.ModeText, Output: "speech.mp3", Speed: 1.2}, "notty", 60)
	if err != nil {
		t.Fatalf("RenderReport() error = %v", err)
	}
	if !strings.Contains(got, "speech.mp3") || !strings.Contains(got, "1.2x") {
		t.Errorf("RenderReport() = %q", got)
	}
}

func TestRenderHistory(t *testing.T) {
	if got := RenderHistory(nil, 80); !strings.Contains(got, "No outputs yet") {
		t.Errorf("empty history = %q", got)
	}

	long := "/home/user/" + strings.Repeat("nested/", 20) + "final.wav"
	entries := []history.Entry{
		{Path: "/tmp/a.wav", Mode: "text", Duration: 5 * time.Second, CreatedAt: time.Now()},
		{Path: long, Mode: "subtitle", Duration: 65 * time.Second, CreatedAt: time.Now().Add(-2 * time.Hour)},
	}
	got := RenderHistory(entries, 60)
	for _, want := range []string{" 1  text", " 2  subtitle", "/tmp/a.wav", "1:05", "final.wav", ellipsis, "2 hours ago"} {
		if !strings.Contains(got, want) {
			t.Errorf("history missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, long) {
		t.Error("long path should be shortened")
	}
}
