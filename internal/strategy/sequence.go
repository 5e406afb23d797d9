package strategy

import "fmt"

// SequenceLength is the fixed length of every stake-multiplier sequence.
const SequenceLength = 4

// Sequence is an ordered list of positive integer stake multipliers applied
// across consecutive wins before resetting.
type Sequence [SequenceLength]int

// The two sequences the selector chooses between.
var (
	// ReferenceSequence is the classic 1-3-2-6 progression.
	ReferenceSequence = Sequence{1, 3, 2, 6}

	// ConservativeSequence is the ascending progression used after repeated
	// losses, trading peak payout for a flatter risk curve.
	ConservativeSequence = Sequence{1, 2, 3, 4}
)

// ValidateSequence rejects any multiplier list that is not exactly four
// positive integers starting at 1.
func ValidateSequence(multipliers []int) (Sequence, error) {
	if len(multipliers) != SequenceLength {
		return Sequence{}, fmt.Errorf("sequence must have exactly %d multipliers, got %d", SequenceLength, len(multipliers))
	}
	if multipliers[0] != 1 {
		return Sequence{}, fmt.Errorf("sequence must start at 1, got %d", multipliers[0])
	}
	var seq Sequence
	for i, m := range multipliers {
		if m <= 0 {
			return Sequence{}, fmt.Errorf("multiplier %d must be positive, got %d", i, m)
		}
		seq[i] = m
	}
	return seq, nil
}

// SequenceKind names the closed set of selectable progressions. Selection is
// a total match; KindDefault is the explicit fallback variant that behaves
// identically to the reference progression.
type SequenceKind int

const (
	KindDefault SequenceKind = iota
	KindReference
	KindConservative
)

// String names the kind for history analysis and logs.
func (k SequenceKind) String() string {
	switch k {
	case KindReference:
		return "reference"
	case KindConservative:
		return "conservative"
	default:
		return "default"
	}
}

// Multipliers returns the concrete sequence for the kind.
func (k SequenceKind) Multipliers() Sequence {
	switch k {
	case KindConservative:
		return ConservativeSequence
	case KindReference:
		return ReferenceSequence
	default:
		return ReferenceSequence
	}
}

// KindFromName maps a configured name onto the closed kind set. Unknown names
// land on KindDefault rather than failing at runtime.
func KindFromName(name string) SequenceKind {
	switch name {
	case "reference", "1-3-2-6":
		return KindReference
	case "conservative", "1-2-3-4":
		return KindConservative
	default:
		return KindDefault
	}
}
