package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds a logger for service. Unknown levels fall back to info and any
// format other than "json" is text.
func New(service, level, format string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log.WithField("service", service)
}
