package daqlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetOrAddComponentReturnsSameInstanceForSameName(t *testing.T) {
	assert := require.New(t)

	a := GetOrAddComponent("widget-test")
	b := GetOrAddComponent("widget-test")
	assert.Same(a, b)
	assert.Equal("widget-test", a.Name())
}

func TestGetOrAddComponentDistinguishesNames(t *testing.T) {
	assert := require.New(t)

	a := GetOrAddComponent("one-test")
	b := GetOrAddComponent("two-test")
	assert.NotSame(a, b)
}

func TestLevelStringKnownAndUnknown(t *testing.T) {
	assert := require.New(t)

	assert.Equal("trace", LevelTrace.String())
	assert.Equal("critical", LevelCritical.String())
	assert.Equal("unknown", Level(99).String())
}

func TestSetLevelAndLoggingNeverPanics(t *testing.T) {
	assert := require.New(t)

	l := GetOrAddComponent("setlevel-test")
	assert.NotPanics(func() {
		SetLevel(LevelWarning)
		l.Trace("t", "k", "v")
		l.Debug("d")
		l.Info("i")
		l.Warning("w")
		l.Error("e")
		l.Critical("c")
		SetLevel(LevelTrace)
	})
}
