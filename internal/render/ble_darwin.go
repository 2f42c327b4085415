package render

import (
	"fmt"
	"time"

	"github.com/kpelzel/artnode/internal/config"
	log "github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

const scanTimeout = 5 * time.Second

// CoreBluetooth only connects to peripherals it has seen advertising, so every light is
// scanned for before connecting.
func connectToLights(lights map[string]config.Light) (map[string]*bluetooth.Device, error) {
	finalDevs := make(map[string]*bluetooth.Device)

	for ln, l := range lights {
		uuid, err := bluetooth.ParseUUID(l.UUID)
		if err != nil {
			disconnect(finalDevs)
			return nil, fmt.Errorf("failed to parse uuid address[%v]: %v", l.UUID, err)
		}

		address := bluetooth.Address{
			UUID: uuid,
		}

		scanChan := make(chan error, 1)
		go func() {
			log.Infof("scanning for light[%v] at %v...", ln, uuid.String())
			err := adapter.Scan(func(adapter *bluetooth.Adapter, device bluetooth.ScanResult) {
				if device.Address.String() == uuid.String() {
					select {
					case scanChan <- nil:
					default:
					}
				}
			})
			if err != nil {
				scanChan <- fmt.Errorf("failed to scan for ble devices: %v", err)
			}
		}()

		select {
		case scanRes := <-scanChan:
			if scanRes != nil {
				disconnect(finalDevs)
				return nil, fmt.Errorf("error while scanning for light[%v] at %v: %v", ln, l.UUID, scanRes)
			}
			log.Infof("found light[%v] at %v", ln, l.UUID)
			adapter.StopScan()
		case <-time.After(scanTimeout):
			adapter.StopScan()
			disconnect(finalDevs)
			return nil, fmt.Errorf("failed to find light[%v] at %v. Is it in range?", ln, l.UUID)
		}

		log.Infof("connecting to light[%v] at %v...", ln, l.UUID)
		dev, err := adapter.Connect(address, bluetooth.ConnectionParams{})
		if err != nil {
			disconnect(finalDevs)
			return nil, fmt.Errorf("failed to connect to device[%v]: %v", ln, err)
		}
		log.Infof("successfully connected to light[%v] at %v", ln, l.UUID)

		finalDevs[ln] = dev
	}

	return finalDevs, nil
}

func write(dChar *bluetooth.DeviceCharacteristic, b []byte) error {
	_, err := dChar.WriteWithoutResponse(b)
	return err
}
