package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestConsoleAppenderFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("robot")
	logger.AddAppender(NewWriterAppender(&buf))

	logger.Infof("loaded %d joints", 6)
	line := strings.TrimSuffix(buf.String(), "\n")
	parts := strings.Split(line, "\t")
	test.That(t, len(parts), test.ShouldEqual, 5)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "robot")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "loaded 6 joints")

	buf.Reset()
	logger.Debugw("attach", "tool", "peg", "links", 9)
	parts = strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\t")
	test.That(t, len(parts), test.ShouldEqual, 6)
	test.That(t, parts[5], test.ShouldEqual, `{"tool":"peg","links":9}`)
}

func TestLevels(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.SetLevel(WARN)
	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept too")
	test.That(t, observed.Len(), test.ShouldEqual, 2)
	test.That(t, observed.All()[0].Message, test.ShouldEqual, "kept")

	lvl, err := LevelFromString("WARNING")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lvl, test.ShouldEqual, WARN)
	_, err = LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSublogger(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	sub := logger.Sublogger("composer")
	subsub := sub.Sublogger("peg")
	subsub.Infow("pushed", "depth", 1)

	entries := observed.FilterMessage("pushed").All()
	test.That(t, len(entries), test.ShouldEqual, 1)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "composer.peg")
	test.That(t, entries[0].ContextMap()["depth"], test.ShouldEqual, int64(1))
}

func TestUnpairedKey(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Infow("odd", "lonely")
	ctx := observed.All()[0].ContextMap()
	test.That(t, ctx["lonely"], test.ShouldEqual, "unpaired log key")
}

func TestEntriesInUTC(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Info("tick")
	entry := observed.All()[0]
	test.That(t, entry.Time.Location(), test.ShouldEqual, time.UTC)
	test.That(t, entry.Caller.TrimmedPath(), test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestSubloggerLevel(t *testing.T) {
	logger := NewLogger("kinsim")
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)
	logger.SetLevel(ERROR)
	sub := logger.Sublogger("world")
	test.That(t, sub.GetLevel(), test.ShouldEqual, ERROR)
	sub.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, ERROR)
}
