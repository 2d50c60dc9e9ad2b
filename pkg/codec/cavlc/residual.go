// Package cavlc decodes CAVLC-coded residual blocks.
package cavlc

import (
	"errors"
	"fmt"

	"github.com/user/h264play/pkg/codec/bitstream"
)

// ErrInvalidCode is returned when no variable-length code matches the input.
var ErrInvalidCode = errors.New("cavlc: invalid code")

// vlc is a prefix-indexed code table: the next maxLen bits of the stream,
// zero padded, index an entry holding the symbol and its code length.
type vlc struct {
	maxLen  int
	entries []vlcEntry
}

type vlcEntry struct {
	sym    int16
	length uint8 // 0 marks an unused prefix
}

type vlcCode struct {
	length, code uint8
	sym          int
}

func newVLC(codes []vlcCode) *vlc {
	v := &vlc{}
	for _, c := range codes {
		v.maxLen = max(v.maxLen, int(c.length))
	}
	v.entries = make([]vlcEntry, 1<<v.maxLen)
	for _, c := range codes {
		if c.length == 0 {
			continue
		}
		shift := v.maxLen - int(c.length)
		first := int(c.code) << shift
		for i := first; i < first+1<<shift; i++ {
			if e := v.entries[i]; e.length == 0 || c.length < e.length {
				v.entries[i] = vlcEntry{sym: int16(c.sym), length: c.length}
			}
		}
	}
	return v
}

func (v *vlc) read(r *bitstream.Reader, what string) (int, error) {
	n := min(v.maxLen, r.BitsLeft())
	cp := r.Checkpoint()
	prefix, err := r.ReadBits(n)
	if err != nil {
		return 0, err
	}
	r.Restore(cp)

	e := v.entries[int(prefix)<<(v.maxLen-n)]
	switch {
	case e.length == 0 && n < v.maxLen, int(e.length) > n:
		return 0, fmt.Errorf("%w: %s", bitstream.ErrExhausted, what)
	case e.length == 0:
		return 0, fmt.Errorf("%w: %s", ErrInvalidCode, what)
	}
	if err := r.Skip(int(e.length)); err != nil {
		return 0, err
	}
	return int(e.sym), nil
}

var (
	coeffTokenVLC      [3]*vlc
	chromaDCTokenVLC   *vlc
	totalZerosVLC      [15]*vlc
	chromaDCTotalZeros [3]*vlc
	runBeforeVLC       [7]*vlc
)

func init() {
	codes := func(lens, vals []uint8) []vlcCode {
		out := make([]vlcCode, len(lens))
		for i := range lens {
			out[i] = vlcCode{length: lens[i], code: vals[i], sym: i}
		}
		return out
	}

	for c := 0; c < 3; c++ {
		coeffTokenVLC[c] = newVLC(codes(coeffTokenLen[c][:], coeffTokenCode[c][:]))
	}
	chromaDCTokenVLC = newVLC(codes(chromaDCCoeffTokenLen[:], chromaDCCoeffTokenCode[:]))
	for t := 0; t < 15; t++ {
		totalZerosVLC[t] = newVLC(codes(totalZerosLen[t][:], totalZerosCode[t][:]))
	}
	for t := 0; t < 3; t++ {
		chromaDCTotalZeros[t] = newVLC(codes(chromaDCTotalZerosLen[t][:], chromaDCTotalZerosCode[t][:]))
	}
	for t := 0; t < 7; t++ {
		runBeforeVLC[t] = newVLC(codes(runBeforeLen[t][:], runBeforeCode[t][:]))
	}
}

// ChromaDCNC is the nC value selecting the chroma DC coeff_token table.
const ChromaDCNC = -1

// ReadCoeffToken reads coeff_token for the given nC and returns
// TotalCoeff and TrailingOnes.
func ReadCoeffToken(r *bitstream.Reader, nC int) (int, int, error) {
	switch {
	case nC == ChromaDCNC:
		sym, err := chromaDCTokenVLC.read(r, "chroma DC coeff_token")
		if err != nil {
			return 0, 0, err
		}
		return sym / 4, sym % 4, nil

	case nC >= 8:
		v, err := r.ReadBits(6)
		if err != nil {
			return 0, 0, err
		}
		if v == 3 {
			return 0, 0, nil
		}
		tc := int(v>>2) + 1
		t1 := int(v & 3)
		if t1 > tc {
			return 0, 0, fmt.Errorf("%w: coeff_token %06b", ErrInvalidCode, v)
		}
		return tc, t1, nil
	}

	class := 0
	switch {
	case nC >= 4:
		class = 2
	case nC >= 2:
		class = 1
	}
	sym, err := coeffTokenVLC[class].read(r, "coeff_token")
	if err != nil {
		return 0, 0, err
	}
	return sym / 4, sym % 4, nil
}

// ReadBlock parses residual_block_cavlc into coeffLevel[startIdx..endIdx]
// in scan order. maxNumCoeff is 4 for chroma DC, 15 for AC blocks and 16
// otherwise. It returns TotalCoeff.
func ReadBlock(r *bitstream.Reader, nC int, coeffLevel []int, startIdx, endIdx, maxNumCoeff int) (int, error) {
	for i := range coeffLevel {
		coeffLevel[i] = 0
	}

	totalCoeff, trailingOnes, err := ReadCoeffToken(r, nC)
	if err != nil {
		return 0, err
	}
	if totalCoeff == 0 {
		return 0, nil
	}
	if totalCoeff > maxNumCoeff {
		return 0, fmt.Errorf("%w: %d coefficients in %d-coefficient block", ErrInvalidCode, totalCoeff, maxNumCoeff)
	}

	var levelVal [16]int
	suffixLength := 0
	if totalCoeff > 10 && trailingOnes < 3 {
		suffixLength = 1
	}

	for i := 0; i < totalCoeff; i++ {
		if i < trailingOnes {
			sign, err := r.ReadBits(1)
			if err != nil {
				return 0, err
			}
			levelVal[i] = 1 - 2*int(sign)
			continue
		}

		prefix := 0
		for {
			b, err := r.ReadBits(1)
			if err != nil {
				return 0, err
			}
			if b == 1 {
				break
			}
			prefix++
			if prefix > 31 {
				return 0, fmt.Errorf("%w: level_prefix", ErrInvalidCode)
			}
		}

		levelCode := min(15, prefix) << suffixLength
		if suffixLength > 0 || prefix >= 14 {
			suffixSize := suffixLength
			if prefix == 14 && suffixLength == 0 {
				suffixSize = 4
			} else if prefix >= 15 {
				suffixSize = prefix - 3
			}
			if suffixSize > 0 {
				suffix, err := r.ReadBits(suffixSize)
				if err != nil {
					return 0, err
				}
				levelCode += int(suffix)
			}
		}
		if prefix >= 15 && suffixLength == 0 {
			levelCode += 15
		}
		if prefix >= 16 {
			levelCode += (1 << (prefix - 3)) - 4096
		}
		if i == trailingOnes && trailingOnes < 3 {
			levelCode += 2
		}

		if levelCode%2 == 0 {
			levelVal[i] = (levelCode + 2) >> 1
		} else {
			levelVal[i] = (-levelCode - 1) >> 1
		}

		if suffixLength == 0 {
			suffixLength = 1
		}
		if abs(levelVal[i]) > (3<<(suffixLength-1)) && suffixLength < 6 {
			suffixLength++
		}
	}

	zerosLeft := 0
	if totalCoeff < endIdx-startIdx+1 {
		var tz int
		if maxNumCoeff == 4 {
			tz, err = chromaDCTotalZeros[totalCoeff-1].read(r, "total_zeros")
		} else {
			tz, err = totalZerosVLC[totalCoeff-1].read(r, "total_zeros")
		}
		if err != nil {
			return 0, err
		}
		zerosLeft = tz
	}
	if totalCoeff+zerosLeft > endIdx-startIdx+1 {
		return 0, fmt.Errorf("%w: total_zeros %d with %d coefficients", ErrInvalidCode, zerosLeft, totalCoeff)
	}

	var runVal [16]int
	for i := 0; i < totalCoeff-1; i++ {
		if zerosLeft > 0 {
			rb, err := runBeforeVLC[min(zerosLeft, 7)-1].read(r, "run_before")
			if err != nil {
				return 0, err
			}
			if rb > zerosLeft {
				return 0, fmt.Errorf("%w: run_before %d exceeds %d", ErrInvalidCode, rb, zerosLeft)
			}
			runVal[i] = rb
		}
		zerosLeft -= runVal[i]
	}
	runVal[totalCoeff-1] = zerosLeft

	coeffNum := -1
	for i := totalCoeff - 1; i >= 0; i-- {
		coeffNum += runVal[i] + 1
		coeffLevel[startIdx+coeffNum] = levelVal[i]
	}

	return totalCoeff, nil
}

// PredictNC derives nC from the neighbouring blocks' TotalCoeff.
func PredictNC(nA int, availA bool, nB int, availB bool) int {
	switch {
	case availA && availB:
		return (nA + nB + 1) >> 1
	case availA:
		return nA
	case availB:
		return nB
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
