package catalog

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
)

const (
	ProgramsFile     = "programs.yaml"
	AchievementsFile = "achievements.yaml"
)

//go:embed data/*.yaml
var embedded embed.FS

// Load builds the catalog from the embedded YAML files. When dir is set,
// files found there replace their embedded counterpart.
func Load(dir string) (*domain.Catalog, error) {
	var programs []domain.ProgramDefinition
	if err := decodeFile(dir, ProgramsFile, &programs); err != nil {
		return nil, err
	}

	var achievements []domain.AchievementDefinition
	if err := decodeFile(dir, AchievementsFile, &achievements); err != nil {
		return nil, err
	}

	return domain.NewCatalog(programs, achievements)
}

// Default is the embedded catalog. It panics only if the embedded files are
// broken, which the package tests rule out.
func Default() *domain.Catalog {
	c, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

func decodeFile(dir, name string, out any) error {
	data, source, err := readFile(dir, name)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidCatalog, source, err)
	}
	return nil
}

func readFile(dir, name string) ([]byte, string, error) {
	if dir != "" {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err == nil {
			log.Printf("[CATALOG] Using %s", path)
			return data, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, fmt.Errorf("read %s: %w", path, err)
		}
	}

	data, err := embedded.ReadFile("data/" + name)
	if err != nil {
		return nil, name, fmt.Errorf("read embedded %s: %w", name, err)
	}
	return data, "embedded " + name, nil
}
