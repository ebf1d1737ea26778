package bootstrap

import (
	"blobvault/internal/shared/config"
	"blobvault/internal/shared/utils"
)

// ConfigureLogging applies log.dir and log.level. Call it before the first
// logger is created.
func ConfigureLogging(cfg config.LogConfig) {
	if cfg.Dir != "" {
		utils.SetLogDirectory(cfg.Dir)
	}
	utils.SetMinLevel(utils.ParseLevel(cfg.Level))
}
