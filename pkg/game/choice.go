package game

import "fmt"

// Choice is one of the three playable hands. The numeric values are the
// wire representation and must not be reordered: clients send and receive
// 1=scissors, 2=rock, 3=paper.
type Choice int

const (
	Scissors Choice = iota + 1
	Rock
	Paper
)

func (c Choice) Valid() bool {
	return c >= Scissors && c <= Paper
}

func (c Choice) String() string {
	switch c {
	case Scissors:
		return "scissors"
	case Rock:
		return "rock"
	case Paper:
		return "paper"
	}
	return fmt.Sprintf("Choice(%d)", int(c))
}

// Outcome is the result of resolving two simultaneous choices.
type Outcome int

const (
	Draw Outcome = iota
	FirstWins
	SecondWins
)

func (o Outcome) String() string {
	switch o {
	case FirstWins:
		return "first"
	case SecondWins:
		return "second"
	}
	return "draw"
}

// beats maps each choice to the single choice it defeats. The table forms
// one 3-cycle, which keeps the relation auditable and checkable.
var beats = map[Choice]Choice{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// Resolve maps two simultaneous choices to an outcome. Equal choices draw;
// otherwise exactly one side's choice beats the other's.
func Resolve(first, second Choice) Outcome {
	if first == second {
		return Draw
	}
	if beats[first] == second {
		return FirstWins
	}
	return SecondWins
}
