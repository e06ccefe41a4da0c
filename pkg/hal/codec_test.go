package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferListChannels(t *testing.T) {
	tests := []struct {
		name     string
		list     BufferList
		channels uint32
	}{
		{"empty", BufferList{}, 0},
		{"single group", BufferList{{Channels: 2}}, 2},
		{"several groups", BufferList{{Channels: 2}, {Channels: 1}, {Channels: 8}}, 11},
		{"zero channel group", BufferList{{Channels: 0}, {Channels: 4}}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeBufferList(EncodeBufferList(tt.list))
			require.NoError(t, err)
			assert.Equal(t, tt.channels, decoded.Channels())
			assert.Len(t, decoded, len(tt.list))
		})
	}
}

func TestDecodeBufferListEmptyData(t *testing.T) {
	list, err := DecodeBufferList(nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDecodeBufferListTruncated(t *testing.T) {
	data := EncodeBufferList(BufferList{{Channels: 2}, {Channels: 2}})

	_, err := DecodeBufferList(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, err = DecodeBufferList(data[:3])
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestBufferListLayout(t *testing.T) {
	data := EncodeBufferList(BufferList{{Channels: 3, ByteSize: 4096}})
	require.Len(t, data, 24)

	count, err := Uint32(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)

	channels, err := Uint32(data[8:])
	require.NoError(t, err)
	assert.Equal(t, uint32(3), channels)
}

func TestObjectIDs(t *testing.T) {
	ids := []ObjectID{41, 42, 77}
	decoded, err := DecodeObjectIDs(EncodeObjectIDs(ids))
	require.NoError(t, err)
	assert.Equal(t, ids, decoded)

	_, err = DecodeObjectIDs(make([]byte, 6))
	assert.ErrorIs(t, err, ErrMisaligned)

	empty, err := DecodeObjectIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFourCC(t *testing.T) {
	assert.Equal(t, "imic", FourCC(0x696d6963))
	assert.Equal(t, "glob", PropertyScopeGlobal.String())
	assert.Equal(t, "dOut", SelectorDefaultOutputDevice.String())
	assert.Equal(t, "\x00\x00\x00\x00", FourCC(0))
	assert.Equal(t, "ab\x01c", FourCC(0x61620163))
	assert.Equal(t, "\uFFFD\uFFFDab", FourCC(0xfffe6162))
	assert.Equal(t, "é!!", FourCC(0xc3a92121))
	assert.Equal(t, "....", Selector(0).String())

	code, err := ParseFourCC("ispk")
	require.NoError(t, err)
	assert.Equal(t, "ispk", FourCC(code))

	_, err = ParseFourCC("toolong")
	assert.Error(t, err)
}
