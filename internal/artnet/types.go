package artnet

import (
	"errors"
	"net"
)

const (
	Port = 6454

	OpDmx       uint16 = 0x5000
	OpSync      uint16 = 0x5200
	OpDiscovery uint16 = 0x2000

	ProtVerHi = 0
	ProtVerLo = 14

	MinPacketSize = 10  // ID + opcode
	HeaderSize    = 18  // ArtDmx header up to the data field
	MaxPayload    = 512 // one DMX universe
	FrameSize     = HeaderSize + MaxPayload

	opcodeOffset   = 8
	universeOffset = 14
	lengthOffset   = 16

	// the sender counts two bytes of the declared length that never reach the payload
	lengthAdjust = 2
)

// ID is the 8 byte packet identifier "Art-Net\0"
var ID = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

var (
	ErrShortPacket = errors.New("packet too short")
	ErrDataLength  = errors.New("declared data length out of range")
	ErrChecksum    = errors.New("checksum mismatch")
	ErrBlockSize   = errors.New("parameter block too short")
)

// Handler receives one datagram. data is only valid for the duration of the call.
type Handler func(data []byte, sender net.Addr)

// Replier sends a response datagram back to a peer. net.PacketConn satisfies it.
type Replier interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
}
