package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swmodem/pkg/app/config"
	"swmodem/pkg/message"
	"swmodem/pkg/mqtt"
	"swmodem/pkg/radio"
	"swmodem/pkg/rx"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	a, err := New(config.NewConfig())
	require.NoError(t, err)

	a.rx = rx.New(a.msgs, rx.Immediate{})
	a.initDefaultRoutes()
	return a
}

func do(t *testing.T, a *App, method, target, body string) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	resp, err := a.web.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestHandleVersion(t *testing.T) {
	a := newTestApp(t)

	code, body := do(t, a, http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, code)

	var v map[string]string
	require.NoError(t, json.Unmarshal(body, &v))
	assert.Equal(t, VERSION, v["version"])
	assert.Equal(t, "swmodem", v["description"])
	assert.Equal(t, Version(), v["about"])
}

func TestHandleSend(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"hex", "01 02 0a", http.StatusAccepted},
		{"invalid", "0x12", http.StatusBadRequest},
		{"odd", "123", http.StatusBadRequest},
		{"empty", "  ", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t)
			code, _ := do(t, a, http.MethodPost, "/send", tt.body)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestHandleSendQueueFull(t *testing.T) {
	a := newTestApp(t)

	for i := 0; i < message.QueueLen; i++ {
		code, _ := do(t, a, http.MethodPost, "/send", "01")
		require.Equal(t, http.StatusAccepted, code)
	}

	code, body := do(t, a, http.MethodPost, "/send", "01")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, string(body), message.ErrQueueFull.Error())
	assert.Equal(t, message.QueueLen, a.msgs.Pending())
}

func TestHandleFramesAndStats(t *testing.T) {
	a := newTestApp(t)

	a.msgs.FrameStart()
	a.msgs.Byte(0x12)
	a.msgs.Byte(0x35)
	a.msgs.FrameEnd(rx.End{Reason: rx.EndMarker, RSSI: 80})

	code, body := do(t, a, http.MethodGet, "/frames", "")
	require.Equal(t, http.StatusOK, code)

	var frames []message.Frame
	require.NoError(t, json.Unmarshal(body, &frames))
	require.Len(t, frames, 1)
	assert.Equal(t, "1235", frames[0].Hex)
	assert.Equal(t, uint8(80), frames[0].RSSI)

	code, body = do(t, a, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, code)

	var stats struct {
		Messages message.Stats `json:"messages"`
		RxState  string        `json:"rxState"`
		TxState  string        `json:"txState"`
	}
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, uint32(1), stats.Messages.Received)
	assert.Equal(t, rx.Off.String(), stats.RxState)
	assert.Empty(t, stats.TxState)
}

func TestHandleHealth(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.msgs.Send([]byte{0x01}))

	code, body := do(t, a, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, code)

	var h struct {
		Version string
		Queued  int
	}
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, VERSION, h.Version)
	assert.Equal(t, 1, h.Queued)
}

func TestDisabledRoute(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Webserver.Webservices["send"] = false

	a, err := New(cfg)
	require.NoError(t, err)
	a.initDefaultRoutes()

	code, _ := do(t, a, http.MethodPost, "/send", "01")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHandleTxMessage(t *testing.T) {
	a := newTestApp(t)

	a.handleTxMessage(mqtt.Message{Topic: "swmodem/tx", Payload: []byte("AA BB")})
	a.handleTxMessage(mqtt.Message{Topic: "swmodem/tx", Payload: []byte("nothex")})

	assert.Equal(t, 1, a.msgs.Pending())
	assert.Equal(t, uint32(1), a.msgs.Stats().Queued)
}

func TestService(t *testing.T) {
	a := newTestApp(t)

	done := make(chan struct{})
	go func() {
		a.service()
		close(done)
	}()

	a.msgs.FrameStart()
	a.msgs.Byte(0x35)
	a.msgs.FrameEnd(rx.End{Reason: rx.EndMarker, RSSI: 90})

	msg := <-a.mqtt.C
	assert.Equal(t, "swmodem/rx", msg.Topic)

	var f message.Frame
	require.NoError(t, json.Unmarshal(msg.Payload, &f))
	assert.Equal(t, "35", f.Hex)
	assert.Equal(t, uint8(90), f.RSSI)

	close(a.msgs.C)
	<-done
}

func TestOpenRadio(t *testing.T) {
	r, closer, err := openRadio(config.RadioConfig{Driver: "none"}, nil)
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.NoError(t, r.EnterRxMode())

	_, _, err = openRadio(config.RadioConfig{Driver: "si4432"}, nil)
	assert.ErrorIs(t, err, radio.ErrUnknownDriver)
}

func TestWebServerFailureShutsDown(t *testing.T) {
	a := newTestApp(t)
	a.urlParsed = &url.URL{Host: "localhost:-1"}

	a.runWebServer()

	select {
	case <-a.Shutdown():
	default:
		t.Fatal("shutdown not signalled")
	}

	// a second failure must not panic
	a.fail("console", io.EOF)
}
