package xbase

import "go.uber.org/zap"

// logger is silent by default; embedding applications opt in via SetLogger.
var logger = zap.NewNop().Sugar()

// SetLogger routes the engine's diagnostic output through the given logger.
// Passing nil restores the silent default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = zap.NewNop().Sugar()
		return
	}
	logger = l.Sugar()
}
