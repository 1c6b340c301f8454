package catalog

import "context"

type Loader interface {
	Load(ctx context.Context, path string) (Catalog, error)
}

// Capabilities reports which mini-game keys can be constructed.
type Capabilities interface {
	Has(key string) bool
}

type Logger interface {
	Warn(msg string, fields map[string]any)
}
