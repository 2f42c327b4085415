package settings

import (
	"net"

	"github.com/kpelzel/artnode/internal/version"
)

// Info describes the device to controllers and the admin protocol.
type Info struct {
	MAC        string       `json:"MAC"`
	AssignedIP string       `json:"AssignedIP"`
	HostAppIP  string       `json:"HostAppIP"`
	Firmware   version.Info `json:"Firmware"`
}

func (s *Store) Info() Info {
	uid := s.UID()
	return Info{
		MAC:        net.HardwareAddr(uid[:]).String(),
		AssignedIP: assignedIP(s.Current().StaticIP),
		HostAppIP:  s.HostAppIP(),
		Firmware:   version.Get(),
	}
}

func assignedIP(static string) string {
	if static != "" {
		return static
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}
