package radio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/womat/debug"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// CC1101 registers and command strobes.
const (
	regIOCFG2   = 0x00
	regIOCFG1   = 0x01
	regIOCFG0   = 0x02
	regPKTLEN   = 0x06
	regPKTCTRL1 = 0x07
	regPKTCTRL0 = 0x08
	regFSCTRL1  = 0x0B
	regFREQ2    = 0x0D
	regFREQ1    = 0x0E
	regFREQ0    = 0x0F
	regMDMCFG4  = 0x10
	regMDMCFG3  = 0x11
	regMDMCFG2  = 0x12
	regMDMCFG1  = 0x13
	regDEVIATN  = 0x15
	regMCSM2    = 0x16
	regMCSM1    = 0x17
	regMCSM0    = 0x18
	regFOCCFG   = 0x19
	regAGCCTRL2 = 0x1B
	regAGCCTRL1 = 0x1C
	regAGCCTRL0 = 0x1D
	regFSCAL3   = 0x23
	regFSCAL2   = 0x24
	regFSCAL1   = 0x25
	regFSCAL0   = 0x26
	regFSTEST   = 0x29
	regTEST2    = 0x2C
	regTEST1    = 0x2D
	regTEST0    = 0x2E
	regRSSI     = 0x34
	regPATABLE  = 0x3E

	strobeSRES    = 0x30
	strobeSFSTXON = 0x31
	strobeSRX     = 0x34
	strobeSTX     = 0x35
	strobeSIDLE   = 0x36
	strobeSFRX    = 0x3A

	flagRead  = 0x80
	flagBurst = 0x40

	stateIdle = 0
	stateRx   = 1
	stateTx   = 2

	// ioAsyncData puts the demodulated data on GDO2 while receiving,
	// transmit data is read from GDO0.
	ioAsyncData = 0x0D
	// ioSerialClock puts the serial clock on GDO2 while transmitting.
	ioSerialClock = 0x0B
	// pktAsyncRx and pktAsyncTx select asynchronous serial mode.
	pktAsyncRx = 0x32
	pktAsyncTx = 0x12

	// DefaultRetries is the number of strobes sent before a mode change times out.
	DefaultRetries = 1000
)

// settings configure the chip for 38400 baud GFSK in asynchronous serial mode.
var settings = [...][2]byte{
	{regIOCFG2, 0x2E},
	{regIOCFG1, 0x2E},
	{regIOCFG0, 0x2E},
	{regPKTLEN, 0x00},
	{regPKTCTRL1, 0x00},
	{regPKTCTRL0, pktAsyncRx},
	{regFSCTRL1, 0x0F},
	{regFREQ2, 0x21},
	{regFREQ1, 0x65},
	{regFREQ0, 0x6C},
	{regMDMCFG4, 0x6A},
	{regMDMCFG3, 0x83},
	{regMDMCFG2, 0x10},
	{regMDMCFG1, 0x02},
	{regDEVIATN, 0x50},
	{regMCSM2, 0x07},
	{regMCSM1, 0x30},
	{regMCSM0, 0x18},
	{regFOCCFG, 0x16},
	{regAGCCTRL2, 0x43},
	{regAGCCTRL1, 0x40},
	{regAGCCTRL0, 0x91},
	{regFSCAL3, 0xE9},
	{regFSCAL2, 0x2A},
	{regFSCAL1, 0x00},
	{regFSCAL0, 0x1F},
	{regFSTEST, 0x59},
	{regTEST2, 0x81},
	{regTEST1, 0x35},
	{regTEST0, 0x09},
	{regPATABLE, 0xC3},
}

// Conn is a full duplex SPI connection, spi.Conn implements it.
type Conn interface {
	Tx(w, r []byte) error
}

// CC1101 is a TI CC1101 transceiver in asynchronous serial mode: GDO2 is the
// receive data pin, GDO0 the transmit data pin.
type CC1101 struct {
	mu      sync.Mutex
	conn    Conn
	retries int
}

// NewCC1101 returns the radio on conn. Call Init before use.
func NewCC1101(conn Conn) *CC1101 {
	return &CC1101{conn: conn, retries: DefaultRetries}
}

// OpenCC1101 opens the SPI port name, "" is the first port found, and
// initialises the chip.
func OpenCC1101(name string, speed physic.Frequency) (*CC1101, io.Closer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph init: %w", err)
	}

	p, err := spireg.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open spi %q: %w", name, err)
	}

	conn, err := p.Connect(speed, spi.Mode0, 8)
	if err != nil {
		_ = p.Close()
		return nil, nil, fmt.Errorf("connect spi %q: %w", name, err)
	}

	c := NewCC1101(conn)
	if err = c.Init(); err != nil {
		_ = p.Close()
		return nil, nil, err
	}
	return c, p, nil
}

// Init resets the chip, writes the settings and enters idle mode.
func (c *CC1101) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.strobe(strobeSRES); err != nil {
		return err
	}
	time.Sleep(time.Millisecond)

	for _, s := range settings {
		if err := c.write(s[0], s[1]); err != nil {
			return err
		}
	}

	debug.InfoLog.Print("cc1101 initialised")
	return c.enter(strobeSIDLE, stateIdle)
}

// EnterIdleMode implements frame.Radio.
func (c *CC1101) EnterIdleMode() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.enter(strobeSIDLE, stateIdle)
}

// EnterRxMode implements frame.Radio.
func (c *CC1101) EnterRxMode() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.switchTo(ioAsyncData, pktAsyncRx, strobeSFRX, strobeSRX, stateRx)
}

// EnterTxMode implements frame.Radio.
func (c *CC1101) EnterTxMode() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.switchTo(ioSerialClock, pktAsyncTx, strobeSFSTXON, strobeSTX, stateTx)
}

// ReadRSSI implements frame.Radio. The value is the negated dBm level,
// 10 to 138. Read errors give 0.
func (c *CC1101) ReadRSSI() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.read(regRSSI | flagBurst)
	if err != nil {
		debug.ErrorLog.Printf("read rssi: %v", err)
		return 0
	}

	dbm := int(int8(v))/2 - 74
	return uint8(-dbm)
}

func (c *CC1101) switchTo(iocfg, pktctrl, prepare, strobe, state byte) error {
	if err := c.enter(strobeSIDLE, stateIdle); err != nil {
		return err
	}
	if err := c.write(regIOCFG2, iocfg); err != nil {
		return err
	}
	if err := c.write(regPKTCTRL0, pktctrl); err != nil {
		return err
	}
	if _, err := c.strobe(prepare); err != nil {
		return err
	}
	return c.enter(strobe, state)
}

// enter repeats the strobe until the status byte reports state.
func (c *CC1101) enter(strobe, state byte) error {
	for i := 0; i < c.retries; i++ {
		st, err := c.strobe(strobe)
		if err != nil {
			return err
		}
		if (st>>4)&0x07 == state {
			return nil
		}
	}
	return fmt.Errorf("%w: strobe %#02x", ErrTimeout, strobe)
}

func (c *CC1101) strobe(cmd byte) (byte, error) {
	r := make([]byte, 1)
	if err := c.conn.Tx([]byte{cmd}, r); err != nil {
		return 0, fmt.Errorf("spi strobe %#02x: %w", cmd, err)
	}
	return r[0], nil
}

func (c *CC1101) read(addr byte) (byte, error) {
	r := make([]byte, 2)
	if err := c.conn.Tx([]byte{addr | flagRead, 0}, r); err != nil {
		return 0, fmt.Errorf("spi read %#02x: %w", addr, err)
	}
	return r[1], nil
}

func (c *CC1101) write(addr, value byte) error {
	if err := c.conn.Tx([]byte{addr, value}, make([]byte, 2)); err != nil {
		return fmt.Errorf("spi write %#02x: %w", addr, err)
	}
	return nil
}
