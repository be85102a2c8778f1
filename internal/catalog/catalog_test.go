package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "sessions.yaml", `
sessions:
  - title: Duurloop 10 km
    cues:
      - t: 5
        text: start rustig
      - t: 300.5
        text: versnellen
  - title: Intervallen
    cues:
      - t: 0
        text: ""
`)
	cat, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cat.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(cat.Sessions))
	}
	if cat.Sessions[0].Title != "Duurloop 10 km" {
		t.Fatalf("unexpected title %q", cat.Sessions[0].Title)
	}
	cues := cat.Sessions[0].Cues
	if len(cues) != 2 || cues[1].T != 300.5 || cues[1].Text != "versnellen" {
		t.Fatalf("unexpected cues: %+v", cues)
	}
	if cat.ModTime.IsZero() {
		t.Fatal("expected a freshness marker")
	}
}

func TestLoadEmbeddedHTML(t *testing.T) {
	path := writeFile(t, "index.html", `<html><script>
const SESSIONS = [
  {"title": "Herstelloop", "cues": [{"t": 2.0, "text": "rustig aan"}]}
];
</script></html>`)
	cat, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cat.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(cat.Sessions))
	}
	if cat.Sessions[0].Cues[0].Text != "rustig aan" {
		t.Fatalf("unexpected cue: %+v", cat.Sessions[0].Cues[0])
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing catalog")
	}
	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceError, got %T: %v", err, err)
	}
}

func TestLoadMalformed(t *testing.T) {
	cases := map[string]struct {
		name    string
		content string
	}{
		"bad yaml":          {"sessions.yaml", "sessions: ["},
		"no sessions key":   {"sessions.yaml", "other: true"},
		"empty catalog":     {"sessions.yaml", "sessions: []"},
		"no embedded block": {"index.html", "<html></html>"},
		"bad embedded json": {"index.html", "const SESSIONS = [{bad}];"},
		"negative cue time": {"sessions.yaml", "sessions:\n  - title: x\n    cues:\n      - t: -1\n        text: y"},
		"empty title":       {"sessions.yaml", "sessions:\n  - title: \"\"\n    cues: []"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, tc.name, tc.content)
			if _, err := Load(path); err == nil {
				t.Fatal("expected load error")
			}
		})
	}
}
