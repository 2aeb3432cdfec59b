package sqlitevec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// deserializeFloat32 decodes the little-endian float32 blob format produced
// by sqlite_vec.SerializeFloat32.
func deserializeFloat32(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}
