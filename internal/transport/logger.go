package transport

import "log/slog"

func lineLogger(logger *slog.Logger, port string, attrs ...any) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "transport", "port", port)
	if len(attrs) == 0 {
		return logger
	}

	return logger.With(attrs...)
}
