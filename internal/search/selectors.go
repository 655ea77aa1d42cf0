package search

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SelectorChain is the ordered set of CSS selectors the parser tries against
// a results page. Upstream markup changes frequently, so the chain can be
// overridden from a YAML file instead of recompiling.
type SelectorChain struct {
	// Containers are tried in order; the first selector matching any element
	// wins and its matches become the candidate result blocks.
	Containers []string `yaml:"containers"`
	// Titles are alternatives for the title element inside a block, tried
	// after a plain heading lookup fails.
	Titles []string `yaml:"titles"`
	// Snippets are alternatives for the description element, first match wins.
	Snippets []string `yaml:"snippets"`
}

// DefaultSelectorChain returns the container/title/snippet selectors known to
// match Google's result markup at the time of writing.
func DefaultSelectorChain() SelectorChain {
	return SelectorChain{
		Containers: []string{
			"div.g",
			"div[data-sokoban-container]",
			"div.tF2Cxc",
			"div.MjjYud",
		},
		Titles: []string{"h3", ".LC20lb", ".DKV0Md"},
		Snippets: []string{
			".aCOpRe", ".VwiC3b", ".s3v9rd", ".st", ".IsZvec",
		},
	}
}

// LoadSelectorChain reads a selector chain from a YAML file. Fields left empty
// in the file keep their defaults, so a partial override is valid.
func LoadSelectorChain(path string) (SelectorChain, error) {
	chain := DefaultSelectorChain()

	data, err := os.ReadFile(path)
	if err != nil {
		return chain, fmt.Errorf("failed to read selector config: %w", err)
	}

	var override SelectorChain
	if err := yaml.Unmarshal(data, &override); err != nil {
		return chain, fmt.Errorf("failed to parse selector config: %w", err)
	}

	if len(override.Containers) > 0 {
		chain.Containers = override.Containers
	}
	if len(override.Titles) > 0 {
		chain.Titles = override.Titles
	}
	if len(override.Snippets) > 0 {
		chain.Snippets = override.Snippets
	}
	return chain, nil
}
