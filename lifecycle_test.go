package side

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreInitIsIdempotent(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	c := &core{log: log}

	c.init()
	domAfterFirst := c.dumpDom

	c.init()
	assert.Same(t, domAfterFirst, c.dumpDom, "second init must not replace the RCU domain")
}

func TestCoreExitUnregistersEventsAndMarksExiting(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	c := &core{log: log}
	c.init()

	ev := NewEvent("exit_scenario", LogLevelInfo, 0)

	h, err := c.reg.RegisterEvents([]*EventDescription{ev})
	require.Equal(t, OK, err)

	c.exit()

	assert.Equal(t, uint32(0), ev.State.NrCallbacks())

	_, err = c.reg.RegisterEvents([]*EventDescription{ev})
	assert.Equal(t, Exiting, err)

	_, err = c.dump.RegisterNotification("post_exit", func(*uint64) {}, StatedumpPolling)
	assert.Equal(t, Exiting, err)

	_ = h
}

func TestCoreExitIsIdempotent(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	c := &core{log: log}
	c.init()

	c.exit()
	c.exit()
}
