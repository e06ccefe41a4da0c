package device

import (
	"fmt"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
)

// Fetch reads a variable-length property with the platform's two-phase protocol:
// query the size, allocate, query the data, decode.
// A size of zero is not an error, decode is handed an empty slice.
func Fetch[T any](h hal.HAL, object hal.ObjectID, address hal.PropertyAddress, qualifier hal.Qualifier, decode func([]byte) (T, error)) (T, error) {
	var zero T

	size, err := h.PropertyDataSize(object, address, qualifier)
	if err != nil {
		return zero, err
	}
	if size == 0 {
		return decode(nil)
	}

	data := make([]byte, size)
	n, err := h.PropertyData(object, address, qualifier, data)
	if err != nil {
		return zero, err
	}
	if n > size {
		return zero, fmt.Errorf("%s on object %d: platform wrote %d bytes into %d", address, object, n, size)
	}
	return decode(data[:n])
}

// readUint32 reads a fixed-size 32-bit property without the size phase.
func readUint32(h hal.HAL, object hal.ObjectID, address hal.PropertyAddress, qualifier hal.Qualifier) (uint32, error) {
	data := make([]byte, 4)
	n, err := h.PropertyData(object, address, qualifier, data)
	if err != nil {
		return 0, err
	}
	return hal.Uint32(data[:n])
}

func decodeString(data []byte) (string, error) {
	return string(data), nil
}
