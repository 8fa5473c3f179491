package game

import (
	"math/rand"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Roller draws random numbers for the game
type Roller interface {
	Roll(sides int) int
}

// DiceRoller handles dice rolling for the game
type DiceRoller struct {
	rng *rand.Rand
}

// NewDiceRoller creates a dice roller. A zero seed uses the current time.
func NewDiceRoller(seed int64) *DiceRoller {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DiceRoller{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Roll rolls a dice with the specified number of sides
func (dr *DiceRoller) Roll(sides int) int {
	return dr.rng.Intn(sides) + 1
}

var printer = message.NewPrinter(language.English)

// FormatMoney renders an amount with thousands separators and cents
func FormatMoney(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatWhole renders an amount with thousands separators and no cents
func FormatWhole(v float64) string {
	return printer.Sprintf("%.0f", v)
}
