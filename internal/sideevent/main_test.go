package sideevent

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	SetLogger(l)

	os.Exit(m.Run())
}
