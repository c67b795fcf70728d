package app

import (
	"context"
	"io"
	"net/url"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"swmodem/pkg/app/config"
	"swmodem/pkg/frame"
	"swmodem/pkg/message"
	"swmodem/pkg/mqtt"
	"swmodem/pkg/raspberry"
	"swmodem/pkg/rx"
	"swmodem/pkg/timebase"
	"swmodem/pkg/tty"
	"swmodem/pkg/tx"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// chip is the gpio character device of the receive pin
	chip *raspberry.Chip
	// line delivers the edges of the receive pin
	line *raspberry.Line
	// memory is the gpio memory of the transmit pin
	memory *raspberry.Memory
	txPin  tx.Pin

	// radio is the transceiver, radioCloser releases its bus
	radio       frame.Radio
	radioCloser io.Closer

	// console is the serial host console, nil if not configured
	console *tty.Console

	// worker runs the byte decoder
	worker *rx.Worker
	rx     *rx.Receiver
	tx     *tx.Transmitter
	frame  *frame.Frame

	// msgs is the message layer
	msgs *message.Handler

	// cancel stops the orchestrator, wg waits for it
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// shutdown is closed when a service fails and the application must stop
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	opts := []message.Option{message.WithQueueLen(config.Tx.Queue)}
	if config.Rx.EndMarker < 0 {
		opts = append(opts, message.WithoutEndMarker())
	} else {
		opts = append(opts, message.WithEndMarker(byte(config.Rx.EndMarker)))
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:  fiber.New(),
		mqtt: mqtt.New(),
		msgs: message.New(opts...),

		shutdown: make(chan struct{}),
	}, err
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	go app.mqtt.Service()
	go app.runWebServer()
	go app.capture()
	go app.service()
	if app.console != nil {
		go app.serveConsole()
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		_ = app.frame.Run(ctx, app.config.WorkInterval)
	}()

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if err = app.initHardware(); err != nil {
		return err
	}

	app.initModem()

	if app.config.Serial.Port != "" {
		if app.console, err = tty.Open(app.config.Serial.Port, app.config.Serial.Baud); err != nil {
			debug.ErrorLog.Printf("can't open console: %v", err)
			return err
		}
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection, mqtt.ClientID(MODULE)); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	if err = app.mqtt.Subscribe(app.config.MQTT.TxTopic, app.handleTxMessage); err != nil {
		debug.ErrorLog.Printf("can't subscribe mqtt topic %v", err)
		return err
	}

	// initRoutes and initDefaultRoutes should be always called last because it may access things like app.api
	// which must be initialized before in initAPI()
	app.initDefaultRoutes()

	return nil
}

// initModem wires receiver, transmitter and orchestrator to the radio and the data pins.
func (app *App) initModem() {
	var opts []rx.Option
	if app.config.Rx.EndMarker < 0 {
		opts = append(opts, rx.WithoutEndMarker())
	} else {
		opts = append(opts, rx.WithEndMarker(byte(app.config.Rx.EndMarker)))
	}

	app.worker = rx.NewWorker(app.config.Rx.Queue)
	app.rx = rx.New(app.msgs, app.worker, opts...)
	app.tx = tx.New(app.txPin, tx.NewTicker(timebase.BitPeriod))
	app.frame = frame.New(app.radio, app.msgs, app.rx, app.tx)
}

// capture passes the edges of the receive pin to the receiver.
func (app *App) capture() {
	for ev := range app.line.C {
		app.rx.Edge(ev.Level(), timebase.FromDuration(ev.Timestamp))
	}
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/swmodem.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// fail logs err and signals the shutdown of the application.
func (app *App) fail(service string, err error) {
	debug.ErrorLog.Printf("%v stopped: %v", service, err)
	app.shutdownOnce.Do(func() { close(app.shutdown) })
}

func (app *App) Close() error {
	if app.cancel != nil {
		app.cancel()
		app.wg.Wait()
	}

	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}
	if app.console != nil {
		_ = app.console.Close()
	}
	if app.worker != nil {
		_ = app.worker.Close()
	}

	app.closeHardware()
	return nil
}
