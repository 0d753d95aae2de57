package model

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// PuzzleKind identifies one of the four round-1 puzzle types
type PuzzleKind string

const (
	KindGridNumber    PuzzleKind = "grid_number"
	KindMorseSymbols  PuzzleKind = "morse_symbols"
	KindMemory        PuzzleKind = "memory"
	KindAdvancedWires PuzzleKind = "advanced_wires"
)

// PuzzleData is the kind-specific payload of a puzzle. One concrete
// variant exists per PuzzleKind; Puzzle (un)marshalling switches on
// the puzzleType tag so readers never shape-check the payload.
type PuzzleData interface {
	Kind() PuzzleKind
}

// GridNumberData holds the starting digit and its fixed tap sequence
type GridNumberData struct {
	StartIndex int   `json:"startIndex" bson:"startIndex"`
	Sequence   []int `json:"sequence" bson:"sequence"`
}

func (*GridNumberData) Kind() PuzzleKind { return KindGridNumber }

// MorseSymbolsData holds the 5-character word rendered as symbol glyphs
type MorseSymbolsData struct {
	Word string `json:"word" bson:"word"`
}

func (*MorseSymbolsData) Kind() PuzzleKind { return KindMorseSymbols }

// MemoryData holds the four stage display values, each in [1,3]
type MemoryData struct {
	Displays []int `json:"displays" bson:"displays"`
}

func (*MemoryData) Kind() PuzzleKind { return KindMemory }

// AdvancedWiresData holds the five wire colors and the index of the
// unique correct wire to cut
type AdvancedWiresData struct {
	Wires    []string `json:"wires" bson:"wires"`
	Solution int      `json:"solution" bson:"solution"`
}

func (*AdvancedWiresData) Kind() PuzzleKind { return KindAdvancedWires }

// Puzzle is one round-1 module assigned to a team
type Puzzle struct {
	PuzzleType PuzzleKind `json:"puzzleType" bson:"puzzleType"`
	Solved     bool       `json:"solved" bson:"solved"`
	Data       PuzzleData `json:"data" bson:"data"`
}

func decodePuzzleData(kind PuzzleKind, decode func(v interface{}) error) (PuzzleData, error) {
	switch kind {
	case KindGridNumber:
		var d GridNumberData
		return &d, decode(&d)
	case KindMorseSymbols:
		var d MorseSymbolsData
		return &d, decode(&d)
	case KindMemory:
		var d MemoryData
		return &d, decode(&d)
	case KindAdvancedWires:
		var d AdvancedWiresData
		return &d, decode(&d)
	default:
		return nil, fmt.Errorf("unknown puzzle type %q", kind)
	}
}

// UnmarshalJSON decodes the payload into the variant named by puzzleType
func (p *Puzzle) UnmarshalJSON(data []byte) error {
	var raw struct {
		PuzzleType PuzzleKind      `json:"puzzleType"`
		Solved     bool            `json:"solved"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.PuzzleType = raw.PuzzleType
	p.Solved = raw.Solved
	p.Data = nil
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return nil
	}
	d, err := decodePuzzleData(raw.PuzzleType, func(v interface{}) error {
		return json.Unmarshal(raw.Data, v)
	})
	if err != nil {
		return err
	}
	p.Data = d
	return nil
}

// UnmarshalBSON decodes the payload into the variant named by puzzleType
func (p *Puzzle) UnmarshalBSON(data []byte) error {
	var raw struct {
		PuzzleType PuzzleKind `bson:"puzzleType"`
		Solved     bool       `bson:"solved"`
		Data       bson.Raw   `bson:"data"`
	}
	if err := bson.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.PuzzleType = raw.PuzzleType
	p.Solved = raw.Solved
	p.Data = nil
	if len(raw.Data) == 0 {
		return nil
	}
	d, err := decodePuzzleData(raw.PuzzleType, func(v interface{}) error {
		return bson.Unmarshal(raw.Data, v)
	})
	if err != nil {
		return err
	}
	p.Data = d
	return nil
}
