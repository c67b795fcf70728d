package app

import (
	"fmt"
	"io"

	"github.com/womat/debug"
	"periph.io/x/conn/v3/physic"

	"swmodem/pkg/app/config"
	"swmodem/pkg/frame"
	"swmodem/pkg/radio"
	"swmodem/pkg/raspberry"
)

// initHardware opens the data pins and the radio.
func (app *App) initHardware() (err error) {
	if app.chip, err = raspberry.Open(app.config.Rx.Chip); err != nil {
		debug.ErrorLog.Printf("can't open gpio chip %v: %v", app.config.Rx.Chip, err)
		return err
	}

	if app.line, err = app.chip.NewLine(app.config.Rx.Gpio, app.config.Rx.Pull); err != nil {
		debug.ErrorLog.Printf("can't open rx line: %v", err)
		return err
	}

	if app.memory, err = raspberry.OpenMemory(); err != nil {
		debug.ErrorLog.Printf("can't open gpio memory: %v", err)
		return err
	}

	// the idle line is high
	pin, err := app.memory.NewOutputPin(app.config.Tx.Gpio, true)
	if err != nil {
		debug.ErrorLog.Printf("can't open tx pin: %v", err)
		return err
	}
	app.txPin = pin

	if app.radio, app.radioCloser, err = openRadio(app.config.Radio, app.memory); err != nil {
		debug.ErrorLog.Printf("can't open radio: %v", err)
		return err
	}

	debug.InfoLog.Printf("rx gpio %v, tx gpio %v, radio %v", app.config.Rx.Gpio, app.config.Tx.Gpio, app.config.Radio.Driver)
	return nil
}

// openRadio returns the configured transceiver.
func openRadio(c config.RadioConfig, memory *raspberry.Memory) (frame.Radio, io.Closer, error) {
	switch c.Driver {
	case "cc1101":
		r, closer, err := radio.OpenCC1101(c.SPI, physic.Frequency(c.SpeedHz)*physic.Hertz)
		if err != nil {
			return nil, nil, err
		}
		return r, closer, nil
	case "switch":
		rxEnable, err := memory.NewOutputPin(c.RxEnable, false)
		if err != nil {
			return nil, nil, err
		}
		txEnable, err := memory.NewOutputPin(c.TxEnable, false)
		if err != nil {
			return nil, nil, err
		}
		return &radio.Switch{RxEnable: rxEnable, TxEnable: txEnable}, nil, nil
	case "none", "":
		return radio.Null{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", radio.ErrUnknownDriver, c.Driver)
	}
}

func (app *App) closeHardware() {
	if app.radio != nil {
		_ = app.radio.EnterIdleMode()
	}
	if app.radioCloser != nil {
		_ = app.radioCloser.Close()
	}
	if app.line != nil {
		_ = app.line.Close()
	}
	if app.chip != nil {
		_ = app.chip.Close()
	}
	if app.memory != nil {
		_ = app.memory.Close()
	}
}
