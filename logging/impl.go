package logging

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// callerSkip is the number of frames between runtime.Caller in entry and the code that called
// one of the Logger methods.
const callerSkip = 3

// logger fans entries out to its appenders. Subloggers share the appender slice of their parent
// and copy its level at creation.
type logger struct {
	name      string
	level     AtomicLevel
	appenders []Appender
}

func newLogger(name string, level Level, appenders ...Appender) *logger {
	return &logger{name: name, level: NewAtomicLevelAt(level), appenders: appenders}
}

func (l *logger) AddAppender(appender Appender) {
	l.appenders = append(l.appenders, appender)
}

func (l *logger) SetLevel(level Level) {
	l.level.Set(level)
}

func (l *logger) GetLevel() Level {
	return l.level.Get()
}

func (l *logger) Sublogger(subname string) Logger {
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	return newLogger(name, l.level.Get(), l.appenders...)
}

func (l *logger) Sync() error {
	var err error
	for _, a := range l.appenders {
		err = multierr.Append(err, a.Sync())
	}
	return err
}

func (l *logger) enabled(level Level) bool {
	return level >= l.level.Get()
}

// entry stamps a message with the time, the logger name and the caller of the Logger method.
func (l *logger) entry(level Level, msg string) zapcore.Entry {
	e := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now().UTC(),
		LoggerName: l.name,
		Message:    msg,
	}
	pc, file, line, ok := runtime.Caller(callerSkip)
	if ok {
		e.Caller = zapcore.NewEntryCaller(pc, file, line, true)
		if fn := runtime.FuncForPC(pc); fn != nil {
			e.Caller.Function = fn.Name()
		}
	}
	return e
}

func (l *logger) write(e zapcore.Entry, fields []zapcore.Field) {
	for _, a := range l.appenders {
		if err := a.Write(e, fields); err != nil {
			//nolint:errcheck
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func (l *logger) print(level Level, args ...interface{}) {
	if l.enabled(level) {
		l.write(l.entry(level, fmt.Sprint(args...)), nil)
	}
}

func (l *logger) printf(level Level, template string, args ...interface{}) {
	if l.enabled(level) {
		l.write(l.entry(level, fmt.Sprintf(template, args...)), nil)
	}
}

func (l *logger) printw(level Level, msg string, keysAndValues ...interface{}) {
	if l.enabled(level) {
		l.write(l.entry(level, msg), pairFields(keysAndValues))
	}
}

// pairFields reads alternating keys and values. A trailing key without a value is kept with a
// marker value.
func pairFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.String(key, "unpaired log key"))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func (l *logger) Debug(args ...interface{}) { l.print(DEBUG, args...) }
func (l *logger) Info(args ...interface{})  { l.print(INFO, args...) }
func (l *logger) Warn(args ...interface{})  { l.print(WARN, args...) }
func (l *logger) Error(args ...interface{}) { l.print(ERROR, args...) }

func (l *logger) Debugf(template string, args ...interface{}) { l.printf(DEBUG, template, args...) }
func (l *logger) Infof(template string, args ...interface{})  { l.printf(INFO, template, args...) }
func (l *logger) Warnf(template string, args ...interface{})  { l.printf(WARN, template, args...) }
func (l *logger) Errorf(template string, args ...interface{}) { l.printf(ERROR, template, args...) }

func (l *logger) Debugw(msg string, keysAndValues ...interface{}) { l.printw(DEBUG, msg, keysAndValues...) }
func (l *logger) Infow(msg string, keysAndValues ...interface{})  { l.printw(INFO, msg, keysAndValues...) }
func (l *logger) Warnw(msg string, keysAndValues ...interface{})  { l.printw(WARN, msg, keysAndValues...) }
func (l *logger) Errorw(msg string, keysAndValues ...interface{}) { l.printw(ERROR, msg, keysAndValues...) }
