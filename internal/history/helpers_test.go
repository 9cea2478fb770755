package history

import "brain/internal/config"

func configFor(backend, dir string) config.HistoryConfig {
	return config.HistoryConfig{Backend: backend, Dir: dir}
}
