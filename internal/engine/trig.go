package engine

import (
	"math"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/fixed"
)

const (
	fineAngles     = 8192
	fineMask       = fineAngles - 1
	angleToFine    = 19
	fineQuarter    = fineAngles / 4
	angleTurnShift = 16

	// ang90 is a quarter turn in binary angle units.
	ang90 uint32 = 0x40000000
)

var fineSine [fineAngles]fixed.Fixed

func init() {
	for i := range fineSine {
		fineSine[i] = fixed.FromFloat(math.Sin(2 * math.Pi * float64(i) / fineAngles))
	}
}

func sine(angle uint32) fixed.Fixed {
	return fineSine[(angle>>angleToFine)&fineMask]
}

func cosine(angle uint32) fixed.Fixed {
	return fineSine[((angle>>angleToFine)+fineQuarter)&fineMask]
}

// degreesToAngle converts whole degrees to binary angle units.
func degreesToAngle(deg int) uint32 {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return uint32(uint64(deg) * (1 << 32) / 360)
}
