package render

import (
	"fmt"
	"sync"

	"github.com/kpelzel/artnode/internal/config"
	log "github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

var (
	adapter = bluetooth.DefaultAdapter

	enableOnce sync.Once
	enableErr  error
)

type color struct {
	light string
	char  *bluetooth.DeviceCharacteristic
	Red   byte
	Green byte
	Blue  byte
}

// BLE drives RGB bluetooth lights from a port's output buffer. Each light takes its red,
// green and blue values from fixed offsets of the presented buffer. Writes happen on a
// worker goroutine; a present never waits for the radio.
type BLE struct {
	port   int
	lights map[string]config.Light

	devs  map[string]*bluetooth.Device
	chars map[string]*bluetooth.DeviceCharacteristic

	prev      map[string][3]byte
	colorChan chan color
	done      chan struct{}
	worker    sync.WaitGroup

	write func(*bluetooth.DeviceCharacteristic, []byte) error
}

func enableAdapter() error {
	enableOnce.Do(func() {
		enableErr = adapter.Enable()
	})
	return enableErr
}

func NewBLE(index int, lights map[string]config.Light) (*BLE, error) {
	if len(lights) == 0 {
		return nil, fmt.Errorf("no lights configured for ble output on port[%v]", index)
	}

	if err := enableAdapter(); err != nil {
		return nil, fmt.Errorf("failed to enable ble stack: %v", err)
	}

	devs, err := connectToLights(lights)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to lights: %v", err)
	}

	chars, err := getCharacteristics(devs)
	if err != nil {
		disconnect(devs)
		return nil, fmt.Errorf("failed to get characteristics: %v", err)
	}

	for ln, c := range chars {
		if err := write(c, cmdOn); err != nil {
			disconnect(devs)
			return nil, fmt.Errorf("failed to turn on light[%v]: %v", ln, err)
		}
	}

	b := &BLE{
		port:      index,
		lights:    lights,
		devs:      devs,
		chars:     chars,
		prev:      make(map[string][3]byte),
		colorChan: make(chan color, 1000),
		done:      make(chan struct{}),
		write:     write,
	}
	b.worker.Add(1)
	go b.listenForColor()
	return b, nil
}

func (b *BLE) Render(buf []byte) error {
	for ln, c := range b.chars {
		l := b.lights[ln]
		if max(l.RedByte, l.GreenByte, l.BlueByte) >= len(buf) || min(l.RedByte, l.GreenByte, l.BlueByte) < 0 {
			return fmt.Errorf("light[%v] channel offsets outside %v byte output", ln, len(buf))
		}

		rgb := [3]byte{buf[l.RedByte], buf[l.GreenByte], buf[l.BlueByte]}
		if prev, ok := b.prev[ln]; ok && prev == rgb {
			continue
		}
		b.prev[ln] = rgb

		select {
		case b.colorChan <- color{light: ln, char: c, Red: rgb[0], Green: rgb[1], Blue: rgb[2]}:
		default:
			log.Debugf("bluetooth busy, color not sent to light[%v]", ln)
		}
	}
	return nil
}

func (b *BLE) listenForColor() {
	defer b.worker.Done()
	for {
		select {
		case <-b.done:
			return
		case c := <-b.colorChan:
			if err := b.write(c.char, colorCmd(c.Red, c.Green, c.Blue)); err != nil {
				log.Errorf("failed to set color for light[%v]: %v", c.light, err)
			}
		}
	}
}

// Close stops the color worker, then turns the lights off and disconnects. No color write
// is in flight when the off commands go out.
func (b *BLE) Close() {
	close(b.done)
	b.worker.Wait()
	for ln, c := range b.chars {
		if err := b.write(c, cmdOff); err != nil {
			log.Warnf("failed to turn off light[%v]: %v", ln, err)
		}
	}
	disconnect(b.devs)
}

func disconnect(devs map[string]*bluetooth.Device) {
	for _, d := range devs {
		d.Disconnect()
	}
}

func getCharacteristics(devs map[string]*bluetooth.Device) (map[string]*bluetooth.DeviceCharacteristic, error) {
	finalCharacteristics := make(map[string]*bluetooth.DeviceCharacteristic)
	serWID := bluetooth.New16BitUUID(0xFFD5)
	charWID := bluetooth.New16BitUUID(0xFFD9)
	serRID := bluetooth.New16BitUUID(0xFFD0)

	for dn, dev := range devs {
		log.Debugf("looking for services: %v %v", serWID, serRID)
		ser, err := dev.DiscoverServices([]bluetooth.UUID{serWID, serRID})
		if err != nil {
			return nil, fmt.Errorf("failed to discover services for dev[%v]: %v", dn, err)
		}
		if len(ser) < 2 {
			return nil, fmt.Errorf("failed to discover enough services for dev[%v]: %v", dn, len(ser))
		}

		wChars, err := ser[0].DiscoverCharacteristics([]bluetooth.UUID{charWID})
		if err != nil {
			return nil, fmt.Errorf("failed to discover write characteristic for dev[%v]: %v", dn, err)
		}
		if len(wChars) < 1 {
			return nil, fmt.Errorf("failed to discover enough characteristics for dev[%v]: %v", dn, len(wChars))
		}

		finalCharacteristics[dn] = &wChars[0]
	}

	return finalCharacteristics, nil
}

var (
	cmdOn  = []byte{0xCC, 0x23, 0x33}
	cmdOff = []byte{0xCC, 0x24, 0x33}
)

func colorCmd(red, green, blue byte) []byte {
	return []byte{0x56, red, green, blue, 0x00, 0xF0, 0xAA}
}

// Scan logs every advertising BLE device until the process is stopped.
func Scan() error {
	if err := enableAdapter(); err != nil {
		return fmt.Errorf("failed to enable ble stack: %v", err)
	}

	log.Info("scanning...")
	return adapter.Scan(func(adapter *bluetooth.Adapter, device bluetooth.ScanResult) {
		log.Infof("found device: %v %v %v", device.Address.String(), device.RSSI, device.LocalName())
	})
}
