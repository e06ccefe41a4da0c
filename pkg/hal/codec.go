package hal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrShortBuffer = errors.New("property data shorter than its declared layout")
	ErrMisaligned  = errors.New("property data size is not a multiple of the element size")
)

// Uint32 decodes a native-endian uint32 property value.
func Uint32(data []byte) (uint32, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes, got %d", ErrShortBuffer, len(data))
	}
	return binary.NativeEndian.Uint32(data), nil
}

// PutUint32 encodes v as a native-endian property value.
func PutUint32(v uint32) []byte {
	data := make([]byte, 4)
	binary.NativeEndian.PutUint32(data, v)
	return data
}

// EncodeObjectIDs lays out a list of handles the way the platform returns them.
func EncodeObjectIDs(ids []ObjectID) []byte {
	data := make([]byte, len(ids)*ObjectIDSize)
	for i, id := range ids {
		binary.NativeEndian.PutUint32(data[i*ObjectIDSize:], uint32(id))
	}
	return data
}

// DecodeObjectIDs is the inverse of EncodeObjectIDs. An empty buffer is an empty list.
func DecodeObjectIDs(data []byte) ([]ObjectID, error) {
	if len(data)%ObjectIDSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMisaligned, len(data))
	}
	ids := make([]ObjectID, len(data)/ObjectIDSize)
	for i := range ids {
		ids[i] = ObjectID(binary.NativeEndian.Uint32(data[i*ObjectIDSize:]))
	}
	return ids, nil
}

// Buffer is one channel group of a stream configuration.
type Buffer struct {
	Channels uint32
	ByteSize uint32
}

// BufferList is the variable-length channel group list of a device in one scope.
type BufferList []Buffer

// Native layout: a uint32 group count padded to 8 bytes, followed by one
// 16 byte record per group {channels uint32, byte size uint32, data pointer}.
const (
	bufferListHeaderSize = 8
	bufferRecordSize     = 16
)

// Channels sums the channel count of every group.
func (l BufferList) Channels() uint32 {
	var channels uint32
	for _, buffer := range l {
		channels += buffer.Channels
	}
	return channels
}

// BufferListSize is the encoded size of a list with n groups.
func BufferListSize(n int) int {
	return bufferListHeaderSize + n*bufferRecordSize
}

func EncodeBufferList(l BufferList) []byte {
	data := make([]byte, BufferListSize(len(l)))
	binary.NativeEndian.PutUint32(data, uint32(len(l)))
	for i, buffer := range l {
		record := data[bufferListHeaderSize+i*bufferRecordSize:]
		binary.NativeEndian.PutUint32(record[0:], buffer.Channels)
		binary.NativeEndian.PutUint32(record[4:], buffer.ByteSize)
	}
	return data
}

// DecodeBufferList walks the self-describing group list.
// An empty buffer or a zero group count both decode to an empty list.
func DecodeBufferList(data []byte) (BufferList, error) {
	if len(data) == 0 {
		return BufferList{}, nil
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: buffer list header is %d bytes", ErrShortBuffer, len(data))
	}
	count := int(binary.NativeEndian.Uint32(data))
	if count == 0 {
		return BufferList{}, nil
	}
	if need := BufferListSize(count); len(data) < need {
		return nil, fmt.Errorf("%w: %d groups need %d bytes, got %d", ErrShortBuffer, count, need, len(data))
	}
	list := make(BufferList, count)
	for i := range list {
		record := data[bufferListHeaderSize+i*bufferRecordSize:]
		list[i] = Buffer{
			Channels: binary.NativeEndian.Uint32(record[0:]),
			ByteSize: binary.NativeEndian.Uint32(record[4:]),
		}
	}
	return list, nil
}

// FourCC renders a code as its four bytes, most significant first, decoded as UTF-8.
// Bytes that are not valid UTF-8 become U+FFFD, one per byte; everything else is kept as is.
func FourCC(code uint32) string {
	raw := []byte{byte(code >> 24), byte(code >> 16), byte(code >> 8), byte(code)}
	var sb strings.Builder
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		sb.WriteRune(r)
		raw = raw[size:]
	}
	return sb.String()
}

// printableFourCC is FourCC for logs and addresses: bytes outside printable ASCII become '.'.
func printableFourCC(code uint32) string {
	var sb strings.Builder
	for shift := 24; shift >= 0; shift -= 8 {
		b := byte(code >> shift)
		if b < 0x20 || b > 0x7e {
			b = '.'
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

// ParseFourCC is the inverse of FourCC for four printable characters.
func ParseFourCC(s string) (uint32, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("four character code %q must be 4 bytes long", s)
	}
	return uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3]), nil
}

func isPrintableFourCC(code uint32) bool {
	for shift := 24; shift >= 0; shift -= 8 {
		b := byte(code >> shift)
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}
