package snapshot

import "fmt"

// Open returns the backend named by backend: "none", "json" or "sqlite".
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "none":
		return NopStore{}, nil
	case "json":
		return NewJSONStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", backend)
	}
}
