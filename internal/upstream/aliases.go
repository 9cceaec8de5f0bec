package upstream

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AliasTable maps each logical bookmark field to an ordered list of accepted
// upstream property names, checked in priority order. Supporting a new locale
// or schema convention is a data change: prepend its names here or ship an
// override file.
type AliasTable struct {
	Title       []string `yaml:"title"`
	URL         []string `yaml:"url"`
	Description []string `yaml:"description"`
	Category    []string `yaml:"category"`
	Tags        []string `yaml:"tags"`
}

// DefaultAliases returns the built-in table covering the English and Chinese
// schema conventions seen in the wild.
func DefaultAliases() AliasTable {
	return AliasTable{
		Title:       []string{"Name", "Title", "名称", "标题"},
		URL:         []string{"URL", "Link", "网址", "链接"},
		Description: []string{"Description", "Desc", "描述", "简介"},
		Category:    []string{"Category", "分类", "类别"},
		Tags:        []string{"Tags", "标签"},
	}
}

// LoadAliasFile reads an alias override file (YAML, same shape as AliasTable)
// and returns the overrides prepended to base, so file entries win.
func LoadAliasFile(path string, base AliasTable) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read alias file: %w", err)
	}

	var overrides AliasTable
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return base, fmt.Errorf("failed to parse alias file: %w", err)
	}

	return AliasTable{
		Title:       prepend(overrides.Title, base.Title),
		URL:         prepend(overrides.URL, base.URL),
		Description: prepend(overrides.Description, base.Description),
		Category:    prepend(overrides.Category, base.Category),
		Tags:        prepend(overrides.Tags, base.Tags),
	}, nil
}

func prepend(overrides, base []string) []string {
	if len(overrides) == 0 {
		return base
	}
	seen := make(map[string]bool, len(overrides))
	merged := make([]string, 0, len(overrides)+len(base))
	for _, name := range overrides {
		if !seen[name] {
			merged = append(merged, name)
			seen[name] = true
		}
	}
	for _, name := range base {
		if !seen[name] {
			merged = append(merged, name)
			seen[name] = true
		}
	}
	return merged
}
