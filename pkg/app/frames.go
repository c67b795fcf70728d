package app

import (
	"encoding/json"

	"github.com/womat/debug"

	"swmodem/pkg/message"
	"swmodem/pkg/mqtt"
)

// service waits in an endless loop for frames of the message layer.
// Every frame is sent to the mqtt broker and printed on the console.
func (app *App) service() {
	for f := range app.msgs.C {
		debug.DebugLog.Printf("Frame: %v", f)

		if app.console != nil {
			if err := app.console.Print(f); err != nil {
				debug.ErrorLog.Printf("console: %v", err)
			}
		}
		app.sendMQTT(app.config.MQTT.Topic, f)
	}
}

// sendMQTT send message struct to the mqtt broker.
func (app *App) sendMQTT(topic string, message interface{}) {
	go func(t string, r interface{}) {
		debug.TraceLog.Printf("prepare mqtt message %v %v", t, r)

		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
			return
		}

		app.mqtt.C <- mqtt.Message{
			Qos:      0,
			Retained: false,
			Topic:    t,
			Payload:  b,
		}
	}(topic, message)
}

// handleTxMessage queues a hex message received from the mqtt broker.
func (app *App) handleTxMessage(msg mqtt.Message) {
	data, err := message.ParseHex(string(msg.Payload))
	if err == nil {
		err = app.msgs.Send(data)
	}
	if err != nil {
		debug.ErrorLog.Printf("mqtt topic %v: %v", msg.Topic, err)
	}
}

// serveConsole queues the messages typed on the console.
func (app *App) serveConsole() {
	if err := app.console.Serve(app.msgs.Send); err != nil {
		app.fail("console", err)
	}
}
