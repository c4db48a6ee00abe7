package sonar

import (
	"fmt"
	"strings"
)

// Unit is a length unit readings are expressed in.
type Unit string

// Units
const (
	Millimeter Unit = "mm"
	Centimeter Unit = "cm"
	Meter      Unit = "m"
	Inch       Unit = "in"
	Foot       Unit = "ft"
)

// millimeters per unit.
var divisors = map[Unit]float64{
	Millimeter: 1,
	Centimeter: 10,
	Meter:      1000,
	Inch:       25.4,
	Foot:       304.8,
}

var unitAliases = map[string]Unit{
	"mm":          Millimeter,
	"millimeter":  Millimeter,
	"millimeters": Millimeter,
	"cm":          Centimeter,
	"centimeter":  Centimeter,
	"centimeters": Centimeter,
	"m":           Meter,
	"meter":       Meter,
	"meters":      Meter,
	"in":          Inch,
	"in.":         Inch,
	"inch":        Inch,
	"inches":      Inch,
	"ft":          Foot,
	"ft.":         Foot,
	"foot":        Foot,
	"feet":        Foot,
}

// ParseUnit parses a unit name or one of its common spellings.
func ParseUnit(s string) (Unit, error) {
	if u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w %q: expect mm, cm, m, in or ft", ErrInvalidUnit, s)
}

// IsValid checks if the unit is supported.
func (u Unit) IsValid() bool {
	_, ok := divisors[u]
	return ok
}

// FromMillimeters converts mm into the unit.
func (u Unit) FromMillimeters(mm float64) float64 {
	return mm / u.divisor()
}

// ToMillimeters converts a value in the unit into mm.
func (u Unit) ToMillimeters(v float64) float64 {
	return v * u.divisor()
}

func (u Unit) divisor() float64 {
	if d, ok := divisors[u]; ok {
		return d
	}
	return 1
}
