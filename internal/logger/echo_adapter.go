package logger

import (
	"encoding/json"
	"fmt"
	"io"

	echo_log "github.com/labstack/gommon/log"
)

// EchoLoggerAdapter routes echo's internal logging into a Logger so HTTP
// server messages share the console and file format of the rest of the app.
//
//	e := echo.New()
//	e.Logger = logger.NewEchoLoggerAdapter(central.Module("api"))
type EchoLoggerAdapter struct {
	logger Logger
	level  echo_log.Lvl
	prefix string
}

// NewEchoLoggerAdapter wraps l. A nil logger falls back to a stdout JSON logger.
func NewEchoLoggerAdapter(l Logger) *EchoLoggerAdapter {
	if l == nil {
		l = NewSlogLogger(nil, LogLevelInfo, nil)
	}
	return &EchoLoggerAdapter{logger: l, level: echo_log.INFO}
}

func (a *EchoLoggerAdapter) Output() io.Writer { return io.Discard }

// SetOutput is a no-op; output is owned by the central logger.
func (a *EchoLoggerAdapter) SetOutput(_ io.Writer) {}

func (a *EchoLoggerAdapter) Prefix() string { return a.prefix }

func (a *EchoLoggerAdapter) SetPrefix(p string) { a.prefix = p }

func (a *EchoLoggerAdapter) Level() echo_log.Lvl { return a.level }

// SetLevel records the level echo asks for. Filtering still follows module levels.
func (a *EchoLoggerAdapter) SetLevel(v echo_log.Lvl) { a.level = v }

func (a *EchoLoggerAdapter) SetHeader(_ string) {}

func (a *EchoLoggerAdapter) Print(i ...any) { a.logger.Info(fmt.Sprint(i...)) }

func (a *EchoLoggerAdapter) Printf(format string, args ...any) {
	a.logger.Info(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Printj(j echo_log.JSON) { a.logJSON(LogLevelInfo, j) }

func (a *EchoLoggerAdapter) Debug(i ...any) { a.logger.Debug(fmt.Sprint(i...)) }

func (a *EchoLoggerAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Debugj(j echo_log.JSON) { a.logJSON(LogLevelDebug, j) }

func (a *EchoLoggerAdapter) Info(i ...any) { a.logger.Info(fmt.Sprint(i...)) }

func (a *EchoLoggerAdapter) Infof(format string, args ...any) {
	a.logger.Info(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Infoj(j echo_log.JSON) { a.logJSON(LogLevelInfo, j) }

func (a *EchoLoggerAdapter) Warn(i ...any) { a.logger.Warn(fmt.Sprint(i...)) }

func (a *EchoLoggerAdapter) Warnf(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Warnj(j echo_log.JSON) { a.logJSON(LogLevelWarn, j) }

func (a *EchoLoggerAdapter) Error(i ...any) { a.logger.Error(fmt.Sprint(i...)) }

func (a *EchoLoggerAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Errorj(j echo_log.JSON) { a.logJSON(LogLevelError, j) }

// Fatal logs at error level. It does not exit the process.
func (a *EchoLoggerAdapter) Fatal(i ...any) { a.logger.Error(fmt.Sprint(i...)) }

func (a *EchoLoggerAdapter) Fatalf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a *EchoLoggerAdapter) Fatalj(j echo_log.JSON) { a.logJSON(LogLevelError, j) }

func (a *EchoLoggerAdapter) Panic(i ...any) {
	msg := fmt.Sprint(i...)
	a.logger.Error(msg)
	panic(msg)
}

func (a *EchoLoggerAdapter) Panicf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.logger.Error(msg)
	panic(msg)
}

func (a *EchoLoggerAdapter) Panicj(j echo_log.JSON) {
	a.logJSON(LogLevelError, j)
	panic(fmt.Sprint(j))
}

func (a *EchoLoggerAdapter) logJSON(level LogLevel, j echo_log.JSON) {
	b, err := json.Marshal(j)
	if err != nil {
		a.logger.Log(level, fmt.Sprint(j))
		return
	}
	a.logger.Log(level, string(b))
}
