package cavlc

import (
	"errors"
	"fmt"
)

// ErrLevelRange is returned for coefficients too large for the escape code.
var ErrLevelRange = errors.New("cavlc: level out of range")

// BitWriter receives fixed-width fields, MSB first.
type BitWriter interface {
	WriteBits(v uint32, n int)
}

// WriteBlock encodes coeffLevel[startIdx..endIdx] (scan order) as
// residual_block_cavlc and returns TotalCoeff. It is the inverse of ReadBlock.
func WriteBlock(w BitWriter, nC int, coeffLevel []int, startIdx, endIdx, maxNumCoeff int) (int, error) {
	var pos []int
	for i := endIdx; i >= startIdx; i-- {
		if coeffLevel[i] != 0 {
			pos = append(pos, i)
		}
	}
	totalCoeff := len(pos)

	trailingOnes := 0
	for trailingOnes < totalCoeff && trailingOnes < 3 && abs(coeffLevel[pos[trailingOnes]]) == 1 {
		trailingOnes++
	}

	if err := writeCoeffToken(w, nC, totalCoeff, trailingOnes); err != nil {
		return 0, err
	}
	if totalCoeff == 0 {
		return 0, nil
	}

	for i := 0; i < trailingOnes; i++ {
		if coeffLevel[pos[i]] < 0 {
			w.WriteBits(1, 1)
		} else {
			w.WriteBits(0, 1)
		}
	}

	suffixLength := 0
	if totalCoeff > 10 && trailingOnes < 3 {
		suffixLength = 1
	}
	for i := trailingOnes; i < totalCoeff; i++ {
		level := coeffLevel[pos[i]]
		levelCode := 2*level - 2
		if level < 0 {
			levelCode = -2*level - 1
		}
		if i == trailingOnes && trailingOnes < 3 {
			levelCode -= 2
		}

		if err := writeLevel(w, levelCode, suffixLength); err != nil {
			return 0, err
		}

		if suffixLength == 0 {
			suffixLength = 1
		}
		if abs(level) > (3<<(suffixLength-1)) && suffixLength < 6 {
			suffixLength++
		}
	}

	totalZeros := pos[0] - startIdx + 1 - totalCoeff
	if totalCoeff < endIdx-startIdx+1 {
		if maxNumCoeff == 4 {
			writeCode(w, chromaDCTotalZerosLen[totalCoeff-1][totalZeros], chromaDCTotalZerosCode[totalCoeff-1][totalZeros])
		} else {
			writeCode(w, totalZerosLen[totalCoeff-1][totalZeros], totalZerosCode[totalCoeff-1][totalZeros])
		}
	}

	zerosLeft := totalZeros
	for i := 0; i < totalCoeff-1 && zerosLeft > 0; i++ {
		run := pos[i] - pos[i+1] - 1
		row := min(zerosLeft, 7) - 1
		writeCode(w, runBeforeLen[row][run], runBeforeCode[row][run])
		zerosLeft -= run
	}

	return totalCoeff, nil
}

func writeCoeffToken(w BitWriter, nC, totalCoeff, trailingOnes int) error {
	idx := totalCoeff*4 + trailingOnes
	switch {
	case nC == ChromaDCNC:
		if totalCoeff > 4 {
			return fmt.Errorf("%w: %d chroma DC coefficients", ErrLevelRange, totalCoeff)
		}
		writeCode(w, chromaDCCoeffTokenLen[idx], chromaDCCoeffTokenCode[idx])
	case nC >= 8:
		if totalCoeff == 0 {
			w.WriteBits(3, 6)
		} else {
			w.WriteBits(uint32((totalCoeff-1)<<2|trailingOnes), 6)
		}
	default:
		class := 0
		switch {
		case nC >= 4:
			class = 2
		case nC >= 2:
			class = 1
		}
		writeCode(w, coeffTokenLen[class][idx], coeffTokenCode[class][idx])
	}
	return nil
}

func writeLevel(w BitWriter, levelCode, suffixLength int) error {
	if suffixLength == 0 {
		switch {
		case levelCode < 14:
			writePrefix(w, levelCode)
		case levelCode < 30:
			writePrefix(w, 14)
			w.WriteBits(uint32(levelCode-14), 4)
		case levelCode-30 < 4096:
			writePrefix(w, 15)
			w.WriteBits(uint32(levelCode-30), 12)
		default:
			return fmt.Errorf("%w: level code %d", ErrLevelRange, levelCode)
		}
		return nil
	}

	if levelCode < 15<<suffixLength {
		writePrefix(w, levelCode>>suffixLength)
		w.WriteBits(uint32(levelCode&(1<<suffixLength-1)), suffixLength)
		return nil
	}
	if levelCode-(15<<suffixLength) >= 4096 {
		return fmt.Errorf("%w: level code %d", ErrLevelRange, levelCode)
	}
	writePrefix(w, 15)
	w.WriteBits(uint32(levelCode-(15<<suffixLength)), 12)
	return nil
}

func writePrefix(w BitWriter, zeros int) {
	for zeros > 0 {
		n := min(zeros, 16)
		w.WriteBits(0, n)
		zeros -= n
	}
	w.WriteBits(1, 1)
}

func writeCode(w BitWriter, length, code uint8) {
	w.WriteBits(uint32(code), int(length))
}
