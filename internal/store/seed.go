package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FAQItem is a question/answer pair used to pre-warm the cache.
type FAQItem struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Seed is the content of an ingest file.
type Seed struct {
	Projects []Project `yaml:"projects"`
	FAQ      []FAQItem `yaml:"faq"`
}

func LoadSeedFile(path string) (*Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var seed Seed
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	for i, p := range seed.Projects {
		if p.Title == "" {
			return nil, fmt.Errorf("seed project #%d has no title", i+1)
		}
	}
	return &seed, nil
}
