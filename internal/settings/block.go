package settings

import (
	"fmt"
	"net/netip"

	"github.com/kpelzel/artnode/internal/artnet"
)

// Block renders the settings in the config protocol layout.
func (s Settings) Block(uid [6]byte) artnet.ParameterBlock {
	pb := artnet.ParameterBlock{
		UID:         uid,
		LedType:     uint8(s.LedType),
		OutputCount: uint8(len(s.Ports)),
		TimeHigh:    s.TimeHigh,
		TimeLow:     s.TimeLow,
	}
	if addr, err := netip.ParseAddr(s.StaticIP); err == nil && addr.Is4() {
		pb.StaticIP = addr.As4()
	}
	artnet.PutString(pb.Identity[:], s.Identity)
	artnet.PutString(pb.Model[:], s.Model)
	if s.ArtNetSync {
		pb.ArtNetSync = 1
	}

	start, count := s.Window()
	pb.StartUniverse = uint16(start)
	pb.UniverseCount = uint16(count)

	for i, p := range s.Ports {
		if i >= artnet.BlockPorts {
			break
		}
		pb.Ports[i] = artnet.PortBlock{
			Start:    p.StartUniverse,
			Count:    p.NoUniverses,
			LedCount: p.LedCount,
		}
	}
	return pb
}

// FromBlock applies a received parameter block on top of base. Fields the block does not
// carry (ProductID) are kept from base; the block's window fields are derived values and
// are ignored. The result is validated.
func FromBlock(pb *artnet.ParameterBlock, base Settings) (Settings, error) {
	if pb.OutputCount < 1 || pb.OutputCount > artnet.BlockPorts {
		return Settings{}, fmt.Errorf("%w: output count %v out of range", ErrValidation, pb.OutputCount)
	}

	s := base.Clone()
	s.LedType = LedType(pb.LedType)
	s.TimeHigh = pb.TimeHigh
	s.TimeLow = pb.TimeLow
	s.Identity = artnet.FieldString(pb.Identity[:])
	s.Model = artnet.FieldString(pb.Model[:])
	s.ArtNetSync = pb.ArtNetSync != 0

	s.StaticIP = ""
	if ip := netip.AddrFrom4(pb.StaticIP); !ip.IsUnspecified() {
		s.StaticIP = ip.String()
	}

	s.Ports = s.Ports[:0]
	for _, p := range pb.Ports[:pb.OutputCount] {
		s.Ports = append(s.Ports, PortSettings{
			StartUniverse: p.Start,
			NoUniverses:   p.Count,
			LedCount:      p.LedCount,
		})
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
