// Package content loads authored story data (character roster, flag table
// and chapters) from a directory of JSON or YAML files.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/jwebster45206/novel-engine/pkg/affinity"
	"github.com/jwebster45206/novel-engine/pkg/flags"
	"github.com/jwebster45206/novel-engine/pkg/story"
	"gopkg.in/yaml.v3"
)

// Layout inside a content directory.
const (
	CharactersFile = "characters"
	FlagsFile      = "flags"
	ChaptersDir    = "chapters"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Bundle is everything the engine needs before the first node plays.
type Bundle struct {
	Characters []affinity.Spec
	Flags      []flags.Definition
	Chapters   []story.Chapter
	// Files maps chapter id to the file it was read from.
	Files map[string]string
}

// Load reads a content directory from disk.
func Load(dir string) (*Bundle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("content dir unavailable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content path %s is not a directory", dir)
	}
	return LoadFS(os.DirFS(dir))
}

// LoadFS reads content from fsys. Chapters are declared in lexical file
// order, so prefix file names (01_intro.yaml, 02_festival.yaml) to order them.
func LoadFS(fsys fs.FS) (*Bundle, error) {
	b := &Bundle{Files: make(map[string]string)}

	if name, ok := findFile(fsys, CharactersFile); ok {
		if err := decodeFile(fsys, name, &b.Characters); err != nil {
			return nil, err
		}
	}
	if name, ok := findFile(fsys, FlagsFile); ok {
		if err := decodeFile(fsys, name, &b.Flags); err != nil {
			return nil, err
		}
	}

	entries, err := fs.ReadDir(fsys, ChaptersDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read chapters: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isContentFile(e.Name()) {
			continue
		}
		name := path.Join(ChaptersDir, e.Name())
		var ch story.Chapter
		if err := decodeFile(fsys, name, &ch); err != nil {
			return nil, err
		}
		if ch.ID == "" {
			ch.ID = chapterID(e.Name())
		}
		if prev, dup := b.Files[ch.ID]; dup {
			return nil, fmt.Errorf("chapter %q declared in both %s and %s", ch.ID, prev, name)
		}
		b.Files[ch.ID] = name
		b.Chapters = append(b.Chapters, ch)
	}
	if len(b.Chapters) == 0 {
		return nil, errors.New("content has no chapters")
	}
	return b, nil
}

// chapterID derives an id from a file name, dropping the extension and a
// numeric ordering prefix: "01_intro.yaml" is "intro".
func chapterID(name string) string {
	id := strings.TrimSuffix(name, path.Ext(name))
	trimmed := strings.TrimLeft(id, "0123456789")
	if trimmed != id && len(trimmed) > 1 && (trimmed[0] == '_' || trimmed[0] == '-') {
		return trimmed[1:]
	}
	return id
}

func findFile(fsys fs.FS, base string) (string, bool) {
	for _, ext := range extensions {
		if _, err := fs.Stat(fsys, base+ext); err == nil {
			return base + ext, true
		}
	}
	return "", false
}

func isContentFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func decodeFile(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := Decode(name, data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// Decode unmarshals data as JSON or YAML depending on the file extension.
func Decode(name string, data []byte, v any) error {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return json.Unmarshal(data, v)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported content file %s", name)
	}
}

// DecodeStrict is Decode but rejects fields the target does not declare.
func DecodeStrict(name string, data []byte, v any) error {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(v)
	default:
		return fmt.Errorf("unsupported content file %s", name)
	}
}
