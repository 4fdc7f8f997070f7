package loader

import (
	"encoding/binary"
	"fmt"
	"os"
)

// LoadWords reads a raw data file as a sequence of little-endian
// 32-bit words (spec.md §6: "<component-id> <data-file> (load raw
// words)"). A trailing partial word is zero-padded.
func LoadWords(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file %s: %w", path, err)
	}

	words := make([]uint32, (len(data)+3)/4)
	for i := range words {
		var buf [4]byte
		copy(buf[:], data[i*4:])
		words[i] = binary.LittleEndian.Uint32(buf[:])
	}
	return words, nil
}
