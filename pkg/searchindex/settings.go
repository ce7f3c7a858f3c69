package searchindex

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/meilisearch/meilisearch-go"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/fern/pkg/models"
)

//go:embed settings.yaml
var defaultSettings []byte

// Settings is the subset of engine index settings fern manages.
type Settings struct {
	SearchableAttributes []string            `yaml:"searchableAttributes" json:"searchableAttributes,omitempty"`
	FilterableAttributes []string            `yaml:"filterableAttributes" json:"filterableAttributes,omitempty"`
	SortableAttributes   []string            `yaml:"sortableAttributes" json:"sortableAttributes,omitempty"`
	DisplayedAttributes  []string            `yaml:"displayedAttributes" json:"displayedAttributes,omitempty"`
	RankingRules         []string            `yaml:"rankingRules" json:"rankingRules,omitempty"`
	StopWords            []string            `yaml:"stopWords" json:"stopWords,omitempty"`
	Synonyms             map[string][]string `yaml:"synonyms" json:"synonyms,omitempty"`
}

func (s Settings) meili() *meilisearch.Settings {
	return &meilisearch.Settings{
		SearchableAttributes: s.SearchableAttributes,
		FilterableAttributes: s.FilterableAttributes,
		SortableAttributes:   s.SortableAttributes,
		DisplayedAttributes:  s.DisplayedAttributes,
		RankingRules:         s.RankingRules,
		StopWords:            s.StopWords,
		Synonyms:             s.Synonyms,
	}
}

// LoadSettings reads per-entity-type settings from path, or the embedded defaults
// when path is empty. Keys are entity index names (products, categories, brands).
func LoadSettings(path string) (map[models.EntityType]Settings, error) {
	data := defaultSettings
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read index settings: %w", err)
		}
	}
	return parseSettings(data)
}

func parseSettings(data []byte) (map[models.EntityType]Settings, error) {
	var raw map[string]Settings
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse index settings: %w", err)
	}

	byIndex := make(map[string]models.EntityType, len(models.EntityTypes))
	for _, t := range models.EntityTypes {
		byIndex[t.DefaultIndex()] = t
	}

	out := make(map[models.EntityType]Settings, len(raw))
	for key, settings := range raw {
		t, ok := byIndex[key]
		if !ok {
			return nil, fmt.Errorf("index settings for unknown index %q", key)
		}
		out[t] = settings
	}
	return out, nil
}
