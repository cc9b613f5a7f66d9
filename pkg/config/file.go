package config

import (
	"github.com/dkhoanguyen/dvrk-console/internal/utils"
	"go.uber.org/zap"
)

// RequireFile checks that path exists right before it is used.
func RequireFile(description, path string, logger *zap.Logger) error {
	if !utils.FileExists(path) {
		return &MissingFileError{Description: description, Path: path}
	}
	logger.Info("File found", zap.String("description", description), zap.String("path", path))
	return nil
}
