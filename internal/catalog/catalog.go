// Package catalog loads the ordered list of narrated sessions from a
// declarative source: either a YAML file or the session array embedded in a
// page as `const SESSIONS = [...]`. A missing or unparseable source is fatal
// before any session is processed.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BAQ01/run-coach/internal/timeline"
)

// Session is one narrated workout: a title plus its ordered cue list. The
// compiler consumes the cues in the given order without sorting them.
type Session struct {
	Title string         `yaml:"title" json:"title"`
	Cues  []timeline.Cue `yaml:"cues" json:"cues"`
}

// Catalog is the parsed source plus the freshness marker the staleness gate
// compares artifacts against.
type Catalog struct {
	Sessions []Session
	Source   string
	ModTime  time.Time
}

// SourceError marks the catalog itself as unusable.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("session catalog %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

var sessionsPattern = regexp.MustCompile(`(?s)const\s+SESSIONS\s*=\s*(\[\s*\{.*?\}\s*\])\s*;`)

// Load reads the catalog at path. HTML sources get the embedded SESSIONS
// array extracted; anything else is parsed as YAML.
func Load(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}

	var sessions []Session
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		sessions, err = extractEmbedded(data)
	default:
		sessions, err = parseYAML(data)
	}
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}

	cat := &Catalog{Sessions: sessions, Source: path, ModTime: info.ModTime()}
	if err := cat.validate(); err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	return cat, nil
}

func parseYAML(data []byte) ([]Session, error) {
	var doc struct {
		Sessions []Session `yaml:"sessions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Sessions == nil {
		return nil, fmt.Errorf("no sessions key found")
	}
	return doc.Sessions, nil
}

func extractEmbedded(data []byte) ([]Session, error) {
	m := sessionsPattern.FindSubmatch(data)
	if m == nil {
		return nil, fmt.Errorf("no `const SESSIONS = [...]` block found")
	}
	var sessions []Session
	if err := json.Unmarshal(m[1], &sessions); err != nil {
		return nil, fmt.Errorf("parse embedded sessions: %w", err)
	}
	return sessions, nil
}

func (c *Catalog) validate() error {
	if len(c.Sessions) == 0 {
		return fmt.Errorf("catalog contains no sessions")
	}
	for i, sess := range c.Sessions {
		if strings.TrimSpace(sess.Title) == "" {
			return fmt.Errorf("session %d has an empty title", i)
		}
		for j, cue := range sess.Cues {
			if cue.T < 0 {
				return fmt.Errorf("session %q cue %d has negative timestamp %v", sess.Title, j, cue.T)
			}
		}
	}
	return nil
}
