package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jwebster45206/novel-engine/pkg/affinity"
	"github.com/jwebster45206/novel-engine/pkg/content"
	"github.com/jwebster45206/novel-engine/pkg/flags"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <content_dir>\n", os.Args[0])
		os.Exit(1)
	}

	dir := os.Args[1]
	validator := &ContentValidator{}

	if err := validator.validateDir(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Content is valid!")
}

// ContentValidator runs the strict per-file checks authors need on top of
// the bundle checks the engine performs at load time.
type ContentValidator struct {
	errors []string
}

func (v *ContentValidator) validateDir(dir string) error {
	fmt.Printf("Validating %s...\n", dir)

	v.errors = nil

	bundle, err := content.Load(dir)
	if err != nil {
		return err
	}

	v.validateStrict(dir, content.CharactersFile, func() any { return &[]affinity.Spec{} })
	v.validateStrict(dir, content.FlagsFile, func() any { return &[]flags.Definition{} })

	names := make([]string, 0, len(bundle.Files))
	for _, name := range bundle.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v.validateFilename(name)
		v.decodeStrict(filepath.Join(dir, name), name, &story.Chapter{})
	}

	v.errors = append(v.errors, (&content.Validator{}).Check(bundle)...)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", dir, strings.Join(v.errors, "\n"))
	}

	fmt.Printf("Checked %d characters, %d flags, %d chapters\n",
		len(bundle.Characters), len(bundle.Flags), len(bundle.Chapters))
	return nil
}

// validateStrict decodes the first top-level file named base, if any.
func (v *ContentValidator) validateStrict(dir, base string, target func() any) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		name := base + ext
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			v.decodeStrict(p, name, target())
			return
		}
	}
}

func (v *ContentValidator) decodeStrict(p, name string, target any) {
	data, err := os.ReadFile(p)
	if err != nil {
		v.addError(fmt.Sprintf("failed to read %s: %v", name, err))
		return
	}
	if err := content.DecodeStrict(name, data, target); err != nil {
		v.addError(fmt.Sprintf("%s failed strict decoding: %v", name, err))
	}
}

// validateFilename requires lowercase snake_case with an optional numeric
// ordering prefix, e.g. 01_first_day.yaml.
func (v *ContentValidator) validateFilename(name string) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if trimmed := strings.TrimLeft(stem, "0123456789"); trimmed != stem {
		stem = strings.TrimPrefix(trimmed, "_")
	}
	if !content.IsValidID(stem) {
		v.addError(fmt.Sprintf("chapter filename '%s' must be lowercase snake_case (e.g., 01_first_day.yaml, not 01-First-Day.yaml)", base))
	}
}

func (v *ContentValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}
