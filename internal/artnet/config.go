package artnet

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Config protocol command codes, carried in the discovery opcode.
const (
	CmdGet      uint16 = 0x0001
	CmdSet      uint16 = 0x0002
	CmdGetReply uint16 = 0x0081
	CmdSetReply uint16 = 0x0082
	CmdError    uint16 = 0x00FF

	// ID, opcode, version, command, length
	configHeaderSize = 16
	commandOffset    = 12

	BlockPorts = 4
)

// BroadcastUID addresses every node.
var BroadcastUID = [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

type ConfigPacket struct {
	ProtVerHi byte
	ProtVerLo byte
	Command   uint16
	Data      []byte
	Checksum  byte
}

// Checksum is the sum of the data bytes plus two, modulo 256.
func Checksum(data []byte) byte {
	var sum byte = 2
	for _, b := range data {
		sum += b
	}
	return sum
}

// ParseConfig decodes the structure of a config request. The checksum is not verified
// here because only Set requests are rejected on a mismatch; see ChecksumValid.
func ParseConfig(b []byte) (*ConfigPacket, error) {
	if len(b) < configHeaderSize {
		return nil, fmt.Errorf("%w: %v bytes", ErrShortPacket, len(b))
	}
	n := int(b[14])<<8 | int(b[15])
	if n > MaxPayload {
		return nil, fmt.Errorf("%w: %v", ErrDataLength, n)
	}
	if len(b) < configHeaderSize+n+1 {
		return nil, fmt.Errorf("%w: need %v bytes, got %v", ErrShortPacket, configHeaderSize+n+1, len(b))
	}

	p := &ConfigPacket{
		ProtVerHi: b[10],
		ProtVerLo: b[11],
		Command:   binary.LittleEndian.Uint16(b[commandOffset : commandOffset+2]),
		Data:      make([]byte, n),
		Checksum:  b[configHeaderSize+n],
	}
	copy(p.Data, b[configHeaderSize:configHeaderSize+n])
	return p, nil
}

func (p *ConfigPacket) ChecksumValid() bool {
	return Checksum(p.Data) == p.Checksum
}

// EncodeConfig builds a config datagram with the checksum byte appended.
func EncodeConfig(cmd uint16, data []byte) ([]byte, error) {
	if len(data) > MaxPayload {
		return nil, fmt.Errorf("%w: %v", ErrDataLength, len(data))
	}
	b := make([]byte, configHeaderSize+len(data)+1)
	copy(b[0:8], ID[:])
	binary.LittleEndian.PutUint16(b[opcodeOffset:opcodeOffset+2], OpDiscovery)
	b[10] = ProtVerHi
	b[11] = ProtVerLo
	binary.LittleEndian.PutUint16(b[commandOffset:commandOffset+2], cmd)
	b[14] = byte(len(data) >> 8)
	b[15] = byte(len(data))
	copy(b[configHeaderSize:], data)
	b[len(b)-1] = Checksum(data)
	return b, nil
}

type PortBlock struct {
	Start    uint16
	Count    uint16
	LedCount uint16
}

// ParameterBlock is the fixed big-endian layout exchanged by Get and Set.
type ParameterBlock struct {
	UID           [6]byte
	StaticIP      [4]byte
	Identity      [18]byte
	Model         [18]byte
	LedType       uint8
	ArtNetSync    uint8
	OutputCount   uint8
	TimeHigh      uint16
	TimeLow       uint16
	StartUniverse uint16
	UniverseCount uint16
	Ports         [BlockPorts]PortBlock
}

type FirmwareBlock struct {
	Major     uint8
	Minor     uint8
	Patch     uint8
	BuildTime uint32
	Commit    [8]byte
}

type ProductBlock struct {
	ProductID [16]byte
}

var ParameterBlockSize = binary.Size(ParameterBlock{})

// DataAddressed reports whether the raw Set data starts with uid or the broadcast uid. It
// needs only the leading uid field, so truncated blocks can be screened before decoding.
func DataAddressed(data []byte, uid [6]byte) bool {
	if len(data) < len(uid) {
		return false
	}
	target := [6]byte(data[:6])
	return target == uid || target == BroadcastUID
}

func DecodeParameterBlock(data []byte) (*ParameterBlock, error) {
	if len(data) < ParameterBlockSize {
		return nil, fmt.Errorf("%w: need %v bytes, got %v", ErrBlockSize, ParameterBlockSize, len(data))
	}
	pb := &ParameterBlock{}
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, pb); err != nil {
		return nil, fmt.Errorf("failed to decode parameter block: %w", err)
	}
	return pb, nil
}

// EncodeBlocks concatenates fixed-layout blocks in order.
func EncodeBlocks(blocks ...any) ([]byte, error) {
	var buf bytes.Buffer
	for _, b := range blocks {
		if err := binary.Write(&buf, binary.BigEndian, b); err != nil {
			return nil, fmt.Errorf("failed to encode %T: %w", b, err)
		}
	}
	return buf.Bytes(), nil
}

// PutString copies s into a fixed, zero padded field, truncating if needed.
func PutString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

// FieldString reads a zero padded field.
func FieldString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
