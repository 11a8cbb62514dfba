package indexers

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ELVIS-Project/fiddle-tunes/score"
)

// pitch is a parsed note name: diatonic step, chromatic alteration, octave.
type pitch struct {
	step   int // C=0 .. B=6
	alter  int // sharps positive, flats negative
	octave int
}

var stepIndex = map[byte]int{'C': 0, 'D': 1, 'E': 2, 'F': 3, 'G': 4, 'A': 5, 'B': 6}

// Semitones above C for each unaltered step.
var stepSemitones = [7]int{0, 2, 4, 5, 7, 9, 11}

// parsePitch parses names like "C4", "F#3", "Bb5", "C##4". Octaves follow
// scientific pitch notation.
func parsePitch(name string) (pitch, error) {
	if len(name) < 2 {
		return pitch{}, fmt.Errorf("malformed pitch %q", name)
	}
	step, ok := stepIndex[name[0]]
	if !ok {
		return pitch{}, fmt.Errorf("malformed pitch %q", name)
	}

	i := 1
	alter := 0
	for i < len(name) {
		switch name[i] {
		case '#':
			alter++
		case 'b', '-':
			alter--
		default:
			goto octave
		}
		i++
	}
octave:
	oct, err := strconv.Atoi(name[i:])
	if err != nil {
		return pitch{}, fmt.Errorf("malformed pitch %q", name)
	}
	return pitch{step: step, alter: alter, octave: oct}, nil
}

// diatonic returns the absolute diatonic position in steps.
func (p pitch) diatonic() int {
	return p.octave*7 + p.step
}

// chromatic returns the absolute chromatic position in semitones.
func (p pitch) chromatic() int {
	return p.octave*12 + stepSemitones[p.step] + p.alter
}

// intervalOptions select the interval naming produced by intervalName.
type intervalOptions struct {
	quality bool // prepend quality letters (P, M, m, A, d)
	simple  bool // reduce to single-octave form (octave stays 8)
	byTones bool // distance in whole tones instead of a name; overrides quality
}

// perfect reports whether an undirected simple size is of the perfect class
// (unison, fourth, fifth, and their compounds).
func perfect(simpleSteps int) bool {
	return simpleSteps == 0 || simpleSteps == 3 || simpleSteps == 4
}

// intervalName computes the interval between a lower and an upper pitch
// name. Either pitch being a rest, or failing to parse, yields "Rest",
// matching the source library's behavior for unpitched events. Descending
// intervals (upper sounding below lower) are prefixed "-".
func intervalName(lower, upper string, opts intervalOptions) string {
	if lower == score.Rest || upper == score.Rest {
		return score.Rest
	}
	lp, err := parsePitch(lower)
	if err != nil {
		return score.Rest
	}
	up, err := parsePitch(upper)
	if err != nil {
		return score.Rest
	}

	steps := up.diatonic() - lp.diatonic()
	semis := up.chromatic() - lp.chromatic()

	descending := steps < 0 || (steps == 0 && semis < 0)
	if steps < 0 {
		steps = -steps
	}
	if semis < 0 {
		semis = -semis
	}

	if opts.byTones {
		tones := float64(semis) / 2.0
		if opts.simple {
			tones = math.Mod(tones, 6.0)
		}
		if descending {
			tones = -tones
		}
		return strconv.FormatFloat(tones, 'g', -1, 64)
	}

	simpleSteps := steps % 7
	size := steps + 1
	if opts.simple {
		if steps > 0 && simpleSteps == 0 {
			size = 8
		} else {
			size = simpleSteps + 1
		}
	}

	sign := ""
	if descending {
		sign = "-"
	}
	if !opts.quality {
		return sign + strconv.Itoa(size)
	}

	ref := stepSemitones[simpleSteps] + 12*(steps/7)
	diff := semis - ref

	var q string
	switch {
	case perfect(simpleSteps):
		switch {
		case diff == 0:
			q = "P"
		case diff > 0:
			q = strings.Repeat("A", diff)
		default:
			q = strings.Repeat("d", -diff)
		}
	default:
		switch {
		case diff == 0:
			q = "M"
		case diff == -1:
			q = "m"
		case diff > 0:
			q = strings.Repeat("A", diff)
		default:
			q = strings.Repeat("d", -diff-1)
		}
	}
	return sign + q + strconv.Itoa(size)
}
