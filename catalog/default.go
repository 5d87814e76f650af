package catalog

import (
	_ "embed"
)

//go:embed default.yaml
var defaultCatalog []byte

// Default returns the catalog shipped with the server.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, FormatYAML)
}
