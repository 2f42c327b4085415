package artnet

import (
	"bytes"
	"errors"
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{"empty", nil, 2},
		{"single byte", []byte{5}, 7},
		{"wraps modulo 256", []byte{0xFF, 0x01}, 2},
		{"many bytes", bytes.Repeat([]byte{1}, 300), byte((300 + 2) % 256)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("expected 0x%02x, got 0x%02x", tt.want, got)
			}
		})
	}
}

func TestEncodeParseConfig(t *testing.T) {
	data := []byte("parameter data")

	b, err := EncodeConfig(CmdSet, data)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if len(b) != configHeaderSize+len(data)+1 {
		t.Fatalf("unexpected encoded length %d", len(b))
	}

	p, err := ParseConfig(b)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if p.Command != CmdSet {
		t.Errorf("expected command 0x%04x, got 0x%04x", CmdSet, p.Command)
	}
	if p.ProtVerHi != ProtVerHi || p.ProtVerLo != ProtVerLo {
		t.Errorf("unexpected protocol version %d.%d", p.ProtVerHi, p.ProtVerLo)
	}
	if !bytes.Equal(p.Data, data) {
		t.Errorf("expected data %q, got %q", data, p.Data)
	}
	if !p.ChecksumValid() {
		t.Error("expected checksum to be valid")
	}

	b[len(b)-1]++
	p, err = ParseConfig(b)
	if err != nil {
		t.Fatalf("checksum must not fail parsing: %v", err)
	}
	if p.ChecksumValid() {
		t.Error("expected checksum off by one to be invalid")
	}
}

func TestParseConfigErrors(t *testing.T) {
	valid, err := EncodeConfig(CmdGet, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}

	tooLong := append([]byte(nil), valid...)
	tooLong[14], tooLong[15] = 0x02, 0x01

	tests := []struct {
		name string
		b    []byte
		want error
	}{
		{"header truncated", valid[:configHeaderSize-1], ErrShortPacket},
		{"missing checksum", valid[:len(valid)-1], ErrShortPacket},
		{"data truncated", valid[:configHeaderSize+2], ErrShortPacket},
		{"length above one universe", tooLong, ErrDataLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig(tt.b); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEncodeConfigRejectsOversizedData(t *testing.T) {
	if _, err := EncodeConfig(CmdGetReply, make([]byte, MaxPayload+1)); !errors.Is(err, ErrDataLength) {
		t.Errorf("expected ErrDataLength, got %v", err)
	}
}

func TestParameterBlock(t *testing.T) {
	if ParameterBlockSize != 81 {
		t.Fatalf("expected parameter block of 81 bytes, got %d", ParameterBlockSize)
	}

	pb := ParameterBlock{
		UID:           [6]byte{0x02, 1, 2, 3, 4, 5},
		StaticIP:      [4]byte{10, 0, 0, 7},
		LedType:       4,
		ArtNetSync:    1,
		OutputCount:   2,
		TimeHigh:      300,
		TimeLow:       900,
		StartUniverse: 0,
		UniverseCount: 12,
	}
	PutString(pb.Identity[:], "stage left")
	PutString(pb.Model[:], "AN-4")
	pb.Ports[0] = PortBlock{Start: 0, Count: 6, LedCount: 1020}
	pb.Ports[1] = PortBlock{Start: 6, Count: 6, LedCount: 512}

	data, err := EncodeBlocks(&pb)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if len(data) != ParameterBlockSize {
		t.Fatalf("expected %d bytes, got %d", ParameterBlockSize, len(data))
	}

	got, err := DecodeParameterBlock(data)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if *got != pb {
		t.Errorf("decoded block differs:\n got %+v\nwant %+v", *got, pb)
	}
	if FieldString(got.Identity[:]) != "stage left" {
		t.Errorf("unexpected identity %q", FieldString(got.Identity[:]))
	}

	if _, err := DecodeParameterBlock(data[:ParameterBlockSize-1]); !errors.Is(err, ErrBlockSize) {
		t.Errorf("expected ErrBlockSize, got %v", err)
	}
}

func TestEncodeBlocksConcatenates(t *testing.T) {
	fw := FirmwareBlock{Major: 1, Minor: 2, Patch: 3, BuildTime: 0x01020304}
	var product ProductBlock
	PutString(product.ProductID[:], "AN4-PX")

	data, err := EncodeBlocks(&fw, &product)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if len(data) != 15+16 {
		t.Fatalf("expected 31 bytes, got %d", len(data))
	}
	if !bytes.Equal(data[:7], []byte{1, 2, 3, 1, 2, 3, 4}) {
		t.Errorf("unexpected firmware prefix % x", data[:7])
	}
	if FieldString(data[15:]) != "AN4-PX" {
		t.Errorf("unexpected product id %q", FieldString(data[15:]))
	}
}

func TestDataAddressed(t *testing.T) {
	uid := [6]byte{0x02, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE}
	withUID := func(target [6]byte, size int) []byte {
		b := make([]byte, size)
		copy(b, target[:])
		return b
	}

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"own uid", withUID(uid, ParameterBlockSize), true},
		{"broadcast", withUID(BroadcastUID, ParameterBlockSize), true},
		{"other node", withUID([6]byte{0x02, 0, 0, 0, 0, 1}, ParameterBlockSize), false},
		{"zero uid", withUID([6]byte{}, ParameterBlockSize), false},
		{"truncated block for this node", withUID(uid, 10), true},
		{"truncated block for another node", withUID([6]byte{1, 2, 3, 4, 5, 6}, 20), false},
		{"shorter than a uid", uid[:5], false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DataAddressed(tt.data, uid); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPutString(t *testing.T) {
	field := []byte{9, 9, 9, 9}

	PutString(field, "ab")
	if !bytes.Equal(field, []byte{'a', 'b', 0, 0}) {
		t.Errorf("expected zero padding, got %v", field)
	}

	PutString(field, "abcdef")
	if FieldString(field) != "abcd" {
		t.Errorf("expected truncation, got %q", FieldString(field))
	}
}
