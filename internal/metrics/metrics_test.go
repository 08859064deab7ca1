package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

func TestStartWithEmptyAddrIsNoop(t *testing.T) {
	m := New(testLog(), Config{})
	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, "", m.Addr())
	require.NoError(t, m.Stop())
}

func TestStartServesMetricsEndpoint(t *testing.T) {
	m := New(testLog(), Config{Addr: "127.0.0.1:0"})

	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { m.Stop() })

	m.CallsDispatched.Add(3)

	var resp *http.Response

	for i := 0; i < 20; i++ {
		r, err := http.Get("http://" + m.Addr() + "/metrics")
		if err == nil {
			resp = r
			break
		}

		time.Sleep(10 * time.Millisecond)
	}

	require.NotNil(t, resp)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "side_calls_dispatched_total 3")
}
