package app

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// HandleHealth returns data about the health of the modem process.
// output example:
//  {"NumGoroutines":11,"NumCPU":4,"HeapAllocatedBytes":3322563,"HeapAllocatedMB":3,"SysMemoryBytes":3602903,
//   "SysMemoryMB":3,"Version":"0.6.10+20261001","ProgLang":"go1.21.0","RxState":"Idle","TxState":"Off","Queued":0}
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		hab := m.Alloc
		smb := m.Sys

		healthData := struct {
			NumGoroutines      int
			NumCPU             int
			HeapAllocatedBytes uint64
			HeapAllocatedMB    uint64
			SysMemoryBytes     uint64
			SysMemoryMB        uint64
			Version            string
			ProgLang           string
			HostName           string
			Time               string
			RxState            string
			TxState            string
			Queued             int
		}{
			NumGoroutines:      runtime.NumGoroutine(),
			NumCPU:             runtime.NumCPU(),
			HeapAllocatedBytes: hab,
			HeapAllocatedMB:    bToMb(hab),
			SysMemoryBytes:     smb,
			SysMemoryMB:        bToMb(smb),
			ProgLang:           runtime.Version(),
			Version:            VERSION,
			HostName:           host,
			Time:               time.Now().Format(time.RFC3339),
			Queued:             app.msgs.Pending(),
		}
		if app.rx != nil {
			healthData.RxState = app.rx.State().String()
		}
		if app.tx != nil {
			healthData.TxState = app.tx.State().String()
		}
		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
