// Package puzzle generates the randomized round-1 puzzle payloads and
// the canned round-2 debugging problems assigned to every team.
package puzzle

import (
	"math/rand"
	"time"

	"redcodegreencode/internal/model"
)

// numberPatterns maps each valid starting digit to the fixed 9-element
// tap sequence the defuser must reproduce. Digit 2 has no entry, so it
// can never be a starting digit.
var numberPatterns = map[int][]int{
	0: {0, 4, 2, 5, 6, 1, 8, 3, 7},
	1: {1, 3, 6, 2, 8, 0, 5, 7, 4},
	3: {3, 5, 1, 8, 0, 7, 4, 6, 2},
	4: {4, 1, 3, 2, 8, 6, 5, 0, 7},
	5: {5, 6, 0, 3, 7, 2, 1, 4, 8},
	6: {6, 2, 1, 5, 4, 0, 7, 3, 8},
	7: {7, 0, 4, 3, 2, 5, 1, 6, 8},
	8: {8, 3, 5, 4, 0, 6, 1, 7, 2},
}

// startDigits is the fixed key order used when rolling a pattern
var startDigits = []int{0, 1, 3, 4, 5, 6, 7, 8}

const wordChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var wireColors = []string{"red", "blue", "yellow", "white", "black"}

// Generator produces puzzle payloads from its own random source so
// tests can seed it deterministically.
type Generator struct {
	rng *rand.Rand
}

// New returns a generator seeded from rng, or from the clock when rng
// is nil.
func New(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng}
}

// AdvancedWireSolution computes the index of the unique correct wire.
// The rules are order-sensitive and must be evaluated top to bottom.
func AdvancedWireSolution(wires []string) int {
	redCount := 0
	blackCount := 0
	firstRed := -1
	for i, c := range wires {
		if c == "red" {
			redCount++
			if firstRed == -1 {
				firstRed = i
			}
		}
		if c == "black" {
			blackCount++
		}
	}

	// Rule 1: if the last wire is white, cut the 4th wire.
	if wires[4] == "white" {
		return 3
	}
	// Rule 2: if there are exactly 2 red wires, cut the first red wire.
	if redCount == 2 {
		return firstRed
	}
	// Rule 3: if there are no black wires, cut the 2nd wire.
	if blackCount == 0 {
		return 1
	}
	// Rule 4: otherwise, cut the first wire.
	return 0
}

// MemoryCorrectButton returns the button label the defuser must press
// at the given stage (0-based) for the shown display value. history
// holds the labels pressed at earlier stages.
func MemoryCorrectButton(stage, display int, history []string) string {
	switch stage {
	case 0:
		switch display {
		case 1:
			return "1"
		case 2:
			return "3"
		case 3:
			return "2"
		}
	case 1:
		switch display {
		case 1:
			return history[0]
		case 2:
			return "1"
		case 3:
			return "3"
		}
	case 2:
		switch display {
		case 1:
			return history[1]
		case 2:
			return "2"
		case 3:
			return history[0]
		}
	case 3:
		switch display {
		case 1:
			return history[1]
		case 2:
			return history[2]
		case 3:
			return history[0]
		}
	}
	return ""
}

func (g *Generator) gridNumberData() *model.GridNumberData {
	start := startDigits[g.rng.Intn(len(startDigits))]
	seq := make([]int, len(numberPatterns[start]))
	copy(seq, numberPatterns[start])
	return &model.GridNumberData{StartIndex: start, Sequence: seq}
}

func (g *Generator) morseSymbolsData() *model.MorseSymbolsData {
	word := make([]byte, 5)
	for i := range word {
		word[i] = wordChars[g.rng.Intn(len(wordChars))]
	}
	return &model.MorseSymbolsData{Word: string(word)}
}

func (g *Generator) memoryData() *model.MemoryData {
	displays := make([]int, 4)
	for i := range displays {
		displays[i] = g.rng.Intn(3) + 1
	}
	return &model.MemoryData{Displays: displays}
}

func (g *Generator) advancedWiresData() *model.AdvancedWiresData {
	wires := make([]string, 5)
	for i := range wires {
		wires[i] = wireColors[g.rng.Intn(len(wireColors))]
	}
	return &model.AdvancedWiresData{Wires: wires, Solution: AdvancedWireSolution(wires)}
}

// Payload rolls a fresh kind-specific payload for one puzzle kind.
// Used both at set generation and when re-rolling after a failed
// attempt that did not cost the last life.
func (g *Generator) Payload(kind model.PuzzleKind) model.PuzzleData {
	switch kind {
	case model.KindGridNumber:
		return g.gridNumberData()
	case model.KindMorseSymbols:
		return g.morseSymbolsData()
	case model.KindMemory:
		return g.memoryData()
	case model.KindAdvancedWires:
		return g.advancedWiresData()
	}
	return nil
}

// Round1Set picks 3 of the 4 puzzle kinds at random without
// replacement and rolls a payload for each.
func (g *Generator) Round1Set() []model.Puzzle {
	kinds := []model.PuzzleKind{
		model.KindGridNumber,
		model.KindMorseSymbols,
		model.KindMemory,
		model.KindAdvancedWires,
	}
	g.rng.Shuffle(len(kinds), func(i, j int) {
		kinds[i], kinds[j] = kinds[j], kinds[i]
	})

	puzzles := make([]model.Puzzle, 0, 3)
	for _, kind := range kinds[:3] {
		puzzles = append(puzzles, model.Puzzle{
			PuzzleType: kind,
			Solved:     false,
			Data:       g.Payload(kind),
		})
	}
	return puzzles
}

// Round2Set returns fresh copies of the canned debugging problems with
// solved/attempts/score zeroed.
func (g *Generator) Round2Set() []model.Problem {
	problems := make([]model.Problem, len(round2Problems))
	for i, p := range round2Problems {
		cp := p
		cp.TestCases = make([]model.TestCase, len(p.TestCases))
		copy(cp.TestCases, p.TestCases)
		cp.Solved = false
		cp.Attempts = 0
		cp.Score = 0
		problems[i] = cp
	}
	return problems
}

// PatternSequence returns the fixed tap sequence for a starting digit,
// or nil when the digit has no table entry.
func PatternSequence(start int) []int {
	seq, ok := numberPatterns[start]
	if !ok {
		return nil
	}
	out := make([]int, len(seq))
	copy(out, seq)
	return out
}
