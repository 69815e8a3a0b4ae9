package nestedset

import "github.com/sirupsen/logrus"

// Options controls how a forest is indexed. The zero value is the lenient,
// start-at-1 behaviour the seeders have always used.
type Options struct {
	// Strict turns unresolved parent references into a *ConfigurationError
	// instead of reparenting the node to the root level.
	Strict bool
	// Start is the lft of the first root. Zero means 1.
	Start int
	// Logger receives orphan warnings. Nil means the logrus standard logger.
	Logger logrus.FieldLogger
}

func (o Options) start() int {
	if o.Start <= 0 {
		return 1
	}
	return o.Start
}

// WithField returns a copy of o whose logger carries key=value. A nil Logger
// is resolved to the standard logger first.
func (o Options) WithField(key string, value any) Options {
	o.Logger = o.logger().WithField(key, value)
	return o
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}
