package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Drug describes one NDC entry in the catalog. The catalog is loaded once at
// startup and passed by value; there is no process-global refresh.
type Drug struct {
	Name             string `yaml:"name" json:"name"`
	Class            string `yaml:"class" json:"class"` // TNF-inhibitor, IL-17, IL-23, etc.
	Biosimilar       bool   `yaml:"biosimilar" json:"biosimilar"`
	ReferenceProduct string `yaml:"reference_product" json:"reference_product,omitempty"`
}

type Catalog struct {
	Drugs map[string]Drug `yaml:"drugs" json:"drugs"` // keyed by NDC
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Drugs) == 0 {
		return Catalog{}, fmt.Errorf("drug catalog empty")
	}
	return cat, nil
}

// Lookup resolves an NDC to its catalog entry. Dashes and spaces in the code
// are ignored so 00074-4339-02 and 0074433902 both match.
func (c Catalog) Lookup(ndc string) (Drug, bool) {
	if c.Drugs == nil {
		return Drug{}, false
	}
	key := normalizeNDC(ndc)
	if drug, ok := c.Drugs[key]; ok {
		return drug, true
	}
	for k, v := range c.Drugs {
		if normalizeNDC(k) == key {
			return v, true
		}
	}
	return Drug{}, false
}

// LookupName finds a catalog entry by canonical drug name, case-insensitive.
func (c Catalog) LookupName(name string) (Drug, bool) {
	target := strings.TrimSpace(strings.ToLower(name))
	if target == "" {
		return Drug{}, false
	}
	for _, v := range c.Drugs {
		if strings.ToLower(v.Name) == target {
			return v, true
		}
	}
	return Drug{}, false
}

// BiosimilarsOf returns the names of catalog biosimilars whose reference
// product matches the given drug name.
func (c Catalog) BiosimilarsOf(name string) []string {
	target := strings.TrimSpace(strings.ToLower(name))
	var out []string
	for _, v := range c.Drugs {
		if v.Biosimilar && strings.ToLower(v.ReferenceProduct) == target {
			out = append(out, v.Name)
		}
	}
	return out
}

func normalizeNDC(ndc string) string {
	var b strings.Builder
	for _, r := range ndc {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DefaultCatalog covers the dermatology biologics the platform most often
// sees in claims feeds.
func DefaultCatalog() Catalog {
	return Catalog{Drugs: map[string]Drug{
		"0074433902": {Name: "Humira", Class: "TNF-inhibitor"},
		"0069080901": {Name: "Enbrel", Class: "TNF-inhibitor"},
		"5746801001": {Name: "Amjevita", Class: "TNF-inhibitor", Biosimilar: true, ReferenceProduct: "Humira"},
		"0003289411": {Name: "Hadlima", Class: "TNF-inhibitor", Biosimilar: true, ReferenceProduct: "Humira"},
		"5767030001": {Name: "Cosentyx", Class: "IL-17"},
		"0002144380": {Name: "Taltz", Class: "IL-17"},
		"5724400102": {Name: "Stelara", Class: "IL-12/23"},
		"0173089935": {Name: "Skyrizi", Class: "IL-23"},
		"6021606801": {Name: "Tremfya", Class: "IL-23"},
		"0078097115": {Name: "Otezla", Class: "PDE4-inhibitor"},
	}}
}
