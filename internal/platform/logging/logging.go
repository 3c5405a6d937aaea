package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. It is usable before Init (tests never call Init).
var Log = logrus.New()

type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

func Init(cfg Config) {
	InitWithOutput(cfg, os.Stdout)
}

func InitWithOutput(cfg Config, out io.Writer) {
	Log.SetOutput(out)
	if strings.EqualFold(cfg.Format, "json") {
		Log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}

// GinLogger replaces gin.Logger so request lines go through logrus.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		status := c.Writer.Status()
		entry := Log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"status":  status,
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		switch {
		case status >= 500:
			entry.Error(path)
		case status >= 400:
			entry.Warn(path)
		default:
			entry.Info(path)
		}
	}
}
