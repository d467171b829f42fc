package logger

import (
	"strings"

	"github.com/Domenick1991/flightorders/config"
	log "github.com/sirupsen/logrus"
)

// Setup configures the global logrus logger.
func Setup(cfg config.LogConfig) error {
	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return err
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
