package app

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"swmodem/pkg/message"
	"swmodem/pkg/rx"
)

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	if err := app.web.Listen(app.urlParsed.Host); err != nil {
		app.fail("web server", err)
	}
}

// HandleFrames returns the last received and sent frames, oldest first.
func (app *App) HandleFrames() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request frames")

		return ctx.JSON(app.msgs.Recent())
	}
}

// HandleStats returns the receiver and message counters and the modem state.
func (app *App) HandleStats() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request stats")

		resp := struct {
			Rx       rx.Stats      `json:"rx"`
			Messages message.Stats `json:"messages"`
			RxState  string        `json:"rxState"`
			TxState  string        `json:"txState"`
		}{
			Messages: app.msgs.Stats(),
		}

		if app.rx != nil {
			resp.Rx = app.rx.Stats()
			resp.RxState = app.rx.State().String()
		}
		if app.tx != nil {
			resp.TxState = app.tx.State().String()
		}

		return ctx.JSON(resp)
	}
}

// HandleSend queues the hex message in the request body.
//  example: curl -X POST -d '0102 35' http://localhost:4000/send
func (app *App) HandleSend() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request send")

		data, err := message.ParseHex(string(ctx.Body()))
		if err == nil {
			err = app.msgs.Send(data)
		}

		switch {
		case err == nil:
			return ctx.Status(http.StatusAccepted).JSON(fiber.Map{"queued": len(data)})
		case errors.Is(err, message.ErrQueueFull):
			ctx.Status(http.StatusServiceUnavailable)
		default:
			ctx.Status(http.StatusBadRequest)
		}
		return ctx.JSON(fiber.Map{"error": err.Error()})
	}
}
