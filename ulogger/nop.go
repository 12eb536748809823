package ulogger

// NopLogger discards everything.
type NopLogger struct{}

// NewNopLogger returns a Logger that discards all output.
func NewNopLogger() Logger {
	return &NopLogger{}
}

func (n *NopLogger) LogLevel() int { return 0 }

func (n *NopLogger) SetLogLevel(string) {}

func (n *NopLogger) Debugf(string, ...interface{}) {}

func (n *NopLogger) Infof(string, ...interface{}) {}

func (n *NopLogger) Warnf(string, ...interface{}) {}

func (n *NopLogger) Errorf(string, ...interface{}) {}

func (n *NopLogger) New(string) Logger { return n }
