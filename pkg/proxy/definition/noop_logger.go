package definition

import "github.com/keshava/maro/pkg/proxy/types"

// NoopLogger discards everything. Used when Configuration.LogEnable is
// false, the generalization of the original's DummyLogger.
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (NoopLogger) Info(...interface{})          {}
func (NoopLogger) Infof(string, ...interface{}) {}
func (NoopLogger) Warn(...interface{})          {}
func (NoopLogger) Warnf(string, ...interface{}) {}
func (NoopLogger) Error(...interface{})         {}
func (NoopLogger) Errorf(string, ...interface{}) {
}
func (NoopLogger) Debug(...interface{})          {}
func (NoopLogger) Debugf(string, ...interface{}) {}
func (NoopLogger) Fatal(...interface{})          {}
func (NoopLogger) Fatalf(string, ...interface{}) {
}
func (NoopLogger) ToggleDebug(value bool) bool { return false }

var _ types.Logger = (*NoopLogger)(nil)
