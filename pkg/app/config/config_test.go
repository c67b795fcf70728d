package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/womat/debug"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "swmodem.yaml")
	require.NoError(t, os.WriteFile(name, []byte(content), 0o600))
	return name
}

func TestLoadConfig(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeFile(t, `
workinterval: 5
rx:
  gpio: 17
  pull: pullup
  endmarker: -1
tx:
  gpio: 18
radio:
  driver: switch
  rxenable: 22
  txenable: 23
serial:
  port: /dev/ttyUSB0
mqtt:
  connection: tcp://127.0.0.1:1883
  txtopic: modem/send
debug:
  flag: debug
  file: stdout
`)

	require.NoError(t, c.LoadConfig())

	assert.Equal(t, 5*time.Millisecond, c.WorkInterval)
	assert.Equal(t, RxConfig{Chip: "gpiochip0", Gpio: 17, Pull: "pullup", EndMarker: -1, Queue: 8}, c.Rx)
	assert.Equal(t, 18, c.Tx.Gpio)
	assert.Equal(t, 8, c.Tx.Queue)
	assert.Equal(t, "switch", c.Radio.Driver)
	assert.Equal(t, 23, c.Radio.TxEnable)
	assert.Equal(t, SerialConfig{Port: "/dev/ttyUSB0", Baud: 115200}, c.Serial)
	assert.Equal(t, "modem/send", c.MQTT.TxTopic)
	assert.Equal(t, "swmodem/rx", c.MQTT.Topic)
	assert.True(t, c.Webserver.Webservices["send"])

	assert.EqualValues(t, debug.Warning|debug.Info|debug.Error|debug.Fatal|debug.Debug, c.Debug.Flag)
	assert.Equal(t, os.Stdout, c.Debug.File)
}

func TestLoadConfigFlags(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeFile(t, "debug:\n  flag: standard\n")
	c.Flag.Debug = "trace"

	require.NoError(t, c.LoadConfig())
	assert.EqualValues(t, debug.Full, c.Debug.Flag)
	assert.Equal(t, os.Stderr, c.Debug.File)
	assert.Equal(t, time.Millisecond, c.WorkInterval)
}

func TestLoadConfigDecoderQueue(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = writeFile(t, "rx:\n  queue: 1\n")

	require.NoError(t, c.LoadConfig())
	assert.Equal(t, 2, c.Rx.Queue)
}

func TestLoadConfigErrors(t *testing.T) {
	c := NewConfig()
	c.Flag.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, c.LoadConfig())

	c = NewConfig()
	c.Flag.ConfigFile = writeFile(t, "rx: [")
	assert.Error(t, c.LoadConfig())

	c = NewConfig()
	c.Flag.ConfigFile = writeFile(t, "rx:\n  endmarker: 256\n")
	assert.Error(t, c.LoadConfig())
}
