package search

import (
	_ "embed"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed authority.yaml
var authorityYAML []byte

type authorityTable struct {
	Default float64            `yaml:"default"`
	Domains map[string]float64 `yaml:"domains"`
}

var authorities = loadAuthorityTable()

func loadAuthorityTable() authorityTable {
	var table authorityTable
	if err := yaml.Unmarshal(authorityYAML, &table); err != nil {
		return authorityTable{Default: 0.5}
	}
	if table.Default == 0 {
		table.Default = 0.5
	}
	return table
}

// domainAuthority scores a host by reputation. The exact host wins over its
// registrable parent; unknown hosts get the default.
func domainAuthority(rawURL string) float64 {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return authorities.Default
	}
	host := strings.ToLower(parsed.Host)
	if host == "" {
		return authorities.Default
	}

	if score, ok := authorities.Domains[host]; ok {
		return score
	}

	labels := strings.Split(host, ".")
	if len(labels) > 2 {
		parent := strings.Join(labels[len(labels)-2:], ".")
		if score, ok := authorities.Domains[parent]; ok {
			return score
		}
	}
	return authorities.Default
}
