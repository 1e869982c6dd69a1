package state

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// #region canonical-encoding
// CanonicalSize is the length of Canonical output.
const CanonicalSize = NumGauges*8 + 8

// Canonical encodes s as the six gauges' IEEE-754 bits followed by the step
// count, all little-endian. Two states encode equally iff they are bit-identical.
func Canonical(s GaugeState) []byte {
	buf := make([]byte, CanonicalSize)
	for i, v := range s.Values() {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	binary.LittleEndian.PutUint64(buf[NumGauges*8:], s.StepCount)
	return buf
}

// DecodeCanonical is the inverse of Canonical. Short input decodes the
// available prefix and leaves the rest zero.
func DecodeCanonical(b []byte) GaugeState {
	var vals [NumGauges]float64
	for i := range vals {
		if i*8+8 <= len(b) {
			vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
		}
	}
	s := GaugeState{
		Stability:  vals[Stability],
		Pressure:   vals[Pressure],
		Drag:       vals[Drag],
		Momentum:   vals[Momentum],
		Volatility: vals[Volatility],
		Recovery:   vals[Recovery],
	}
	if len(b) >= CanonicalSize {
		s.StepCount = binary.LittleEndian.Uint64(b[NumGauges*8:])
	}
	return s
}

// #endregion canonical-encoding

// #region digest
// Digest is a sha256 sum.
type Digest [sha256.Size]byte

// Hash returns the digest of the canonical encoding of s.
func Hash(s GaugeState) Digest {
	return sha256.Sum256(Canonical(s))
}

// Hex returns the lowercase hex form of d.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// String implements fmt.Stringer with a short prefix for logs.
func (d Digest) String() string {
	return d.Hex()[:12]
}

// ParseDigest decodes a hex digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, err
	}
	if len(b) != len(d) {
		return d, hex.ErrLength
	}
	copy(d[:], b)
	return d, nil
}

// Equal reports whether a and b are bit-identical, including the step count.
// NaN payloads compare by bits, so this is stricter than ==.
func Equal(a, b GaugeState) bool {
	if a.StepCount != b.StepCount {
		return false
	}
	av, bv := a.Values(), b.Values()
	for i := range av {
		if math.Float64bits(av[i]) != math.Float64bits(bv[i]) {
			return false
		}
	}
	return true
}

// #endregion digest
