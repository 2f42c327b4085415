package artnet

import "encoding/binary"

// Frame is an owned copy of one ArtDmx datagram. It is never modified after NewFrame
// returns, so a single Frame may be held by several ports at once.
type Frame struct {
	buf [FrameSize]byte
	n   int
}

// NewFrame copies data out of the (reused) receive buffer.
func NewFrame(data []byte) *Frame {
	f := &Frame{}
	f.n = copy(f.buf[:], data)
	return f
}

func (f *Frame) Universe() uint16 {
	return binary.LittleEndian.Uint16(f.buf[universeOffset : universeOffset+2])
}

// DeclaredLength is the big-endian length field of the ArtDmx header.
func (f *Frame) DeclaredLength() int {
	return int(binary.BigEndian.Uint16(f.buf[lengthOffset : lengthOffset+2]))
}

// Payload returns the channel data carried by the frame. The slice aliases the frame and
// must not be written to.
func (f *Frame) Payload() []byte {
	n := f.DeclaredLength() - lengthAdjust
	if avail := f.n - HeaderSize; n > avail {
		n = avail
	}
	if n > MaxPayload {
		n = MaxPayload
	}
	if n <= 0 {
		return nil
	}
	return f.buf[HeaderSize : HeaderSize+n]
}

// Len is the number of datagram bytes held by the frame.
func (f *Frame) Len() int {
	return f.n
}

// BuildDmx creates an ArtDmx datagram. Used by tests and the loopback tooling.
func BuildDmx(universe uint16, sequence byte, declaredLength uint16, data []byte) []byte {
	packet := make([]byte, HeaderSize+len(data))
	copy(packet[0:8], ID[:])
	binary.LittleEndian.PutUint16(packet[opcodeOffset:opcodeOffset+2], OpDmx)
	packet[10] = ProtVerHi
	packet[11] = ProtVerLo
	packet[12] = sequence
	packet[13] = 0
	binary.LittleEndian.PutUint16(packet[universeOffset:universeOffset+2], universe)
	binary.BigEndian.PutUint16(packet[lengthOffset:lengthOffset+2], declaredLength)
	copy(packet[HeaderSize:], data)
	return packet
}

// BuildSync creates an ArtSync datagram.
func BuildSync() []byte {
	packet := make([]byte, 14)
	copy(packet[0:8], ID[:])
	binary.LittleEndian.PutUint16(packet[opcodeOffset:opcodeOffset+2], OpSync)
	packet[10] = ProtVerHi
	packet[11] = ProtVerLo
	return packet
}
