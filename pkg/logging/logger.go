package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. It is usable before Init with logrus defaults.
var Log = logrus.New()

// Init configures the logger: debug mode logs everything as text with full
// timestamps, otherwise JSON lines at the given level.
func Init(debug bool, level logrus.Level) {
	InitWithOutput(debug, level, os.Stderr)
}

// InitWithOutput is Init with an explicit writer
func InitWithOutput(debug bool, level logrus.Level, out io.Writer) {
	Log.Out = out

	if debug {
		Log.SetLevel(logrus.DebugLevel)
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		return
	}

	Log.SetLevel(level)
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// Component returns a logger entry tagged with a component name
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
