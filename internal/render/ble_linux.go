package render

import (
	"fmt"

	"github.com/kpelzel/artnode/internal/config"
	log "github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

func connectToLights(lights map[string]config.Light) (map[string]*bluetooth.Device, error) {
	finalDevs := make(map[string]*bluetooth.Device)

	for ln, l := range lights {
		mac, err := bluetooth.ParseMAC(l.MACAddress)
		if err != nil {
			disconnect(finalDevs)
			return nil, fmt.Errorf("failed to parse mac address[%v]: %v", l.MACAddress, err)
		}

		address := bluetooth.Address{
			MACAddress: bluetooth.MACAddress{
				MAC: mac,
			},
		}

		log.Infof("connecting to light[%v] at %v...", ln, l.MACAddress)
		dev, err := adapter.Connect(address, bluetooth.ConnectionParams{})
		if err != nil {
			disconnect(finalDevs)
			return nil, fmt.Errorf("failed to connect to device[%v]: %v", ln, err)
		}
		log.Infof("successfully connected to light[%v] at %v", ln, l.MACAddress)

		finalDevs[ln] = dev
	}

	return finalDevs, nil
}

func write(dChar *bluetooth.DeviceCharacteristic, b []byte) error {
	_, err := dChar.WriteWithoutResponse(b)
	return err
}
