package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(logrus.ErrorLevel)
	if lvl, err := logrus.ParseLevel(strings.TrimSpace(os.Getenv("LOG_LEVEL"))); err == nil {
		logg.SetLevel(lvl)
	}
	logg.SetOutput(os.Stdout)
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	moduleFields(logger, moduleName, funcName, context, data).Error(err.Error())
}

// LogWarning is LogError's counterpart for tolerated conditions (bad catalog data, dropped cache writes).
func LogWarning(logger *logrus.Logger, moduleName string, funcName string, context string, data any, msg string) {
	moduleFields(logger, moduleName, funcName, context, data).Warn(msg)
}

func moduleFields(logger *logrus.Logger, moduleName string, funcName string, context string, data any) *logrus.Entry {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	return logger.WithFields(fields)
}
