package history

import (
	"fmt"
	"path/filepath"

	"brain/internal/config"
)

// Open builds the Store selected by the history configuration.
func Open(cfg config.HistoryConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir)
	case "sqlite":
		path := cfg.DatabasePath
		if path == "" {
			path = filepath.Join(cfg.Dir, "history.db")
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown history backend %q (valid: file, sqlite)", cfg.Backend)
	}
}
