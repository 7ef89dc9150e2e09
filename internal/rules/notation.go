// Package rules implements the narrow collaborators spec §1 keeps outside
// the core: compact-notation parsing/validation (format and the coarse
// distance cap), and the external move-legality adapter. Deep legality
// (does this move actually obey chess rules) is never evaluated here.
package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"matchcoordinator/internal/match"
)

// MaxCoordDigits bounds how many base-10 digits an individual coordinate
// component may carry before it is treated as a parse overflow (spec §4.7
// step 6), independent of the softer, time-scaled DistanceCapDigits below.
const MaxCoordDigits = 15

// ErrMalformedMove is returned for any compact-notation parse failure:
// bad shape, coordinate overflow, or an invalid promotion code.
type ErrMalformedMove struct{ Reason string }

func (e *ErrMalformedMove) Error() string { return "malformed move: " + e.Reason }

var validPromotions = map[string]bool{
	"Q": true, "R": true, "B": true, "N": true, "": true,
}

// ParseCompact decodes the canonical "x,y>x,y[=P]" wire format (spec §3).
func ParseCompact(s string) (match.Move, error) {
	promo := ""
	body := s
	if i := strings.IndexByte(s, '='); i >= 0 {
		body, promo = s[:i], s[i+1:]
		if !validPromotions[promo] {
			return match.Move{}, &ErrMalformedMove{Reason: "invalid promotion code " + promo}
		}
	}

	arrow := strings.IndexByte(body, '>')
	if arrow < 0 {
		return match.Move{}, &ErrMalformedMove{Reason: "missing '>' separator"}
	}
	start, err := parseCoords(body[:arrow])
	if err != nil {
		return match.Move{}, err
	}
	end, err := parseCoords(body[arrow+1:])
	if err != nil {
		return match.Move{}, err
	}

	return match.Move{
		Compact:   s,
		Start:     start,
		End:       end,
		Promotion: promo,
	}, nil
}

func parseCoords(s string) (match.Coords, error) {
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return match.Coords{}, &ErrMalformedMove{Reason: fmt.Sprintf("bad coordinate pair %q", s)}
	}
	x, err := parseBoundedInt(s[:comma])
	if err != nil {
		return match.Coords{}, err
	}
	y, err := parseBoundedInt(s[comma+1:])
	if err != nil {
		return match.Coords{}, err
	}
	return match.Coords{X: x, Y: y}, nil
}

func parseBoundedInt(s string) (int64, error) {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" || len(digits) > MaxCoordDigits {
		return 0, &ErrMalformedMove{Reason: fmt.Sprintf("coordinate %q overflows bounded integer", s)}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ErrMalformedMove{Reason: fmt.Sprintf("coordinate %q is not an integer", s)}
	}
	return n, nil
}

// MaxDigits returns the number of base-10 digits in the larger-magnitude
// coordinate of c (spec §4.7 step 7's "maxDigits(endCoords)").
func MaxDigits(c match.Coords) int {
	x, y := absInt64(c.X), absInt64(c.Y)
	big := x
	if y > big {
		big = y
	}
	return len(strconv.FormatInt(big, 10))
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// DistanceCapDigits computes the soft anti-abuse cap from spec §4.7 step 7
// / §6: floor(1 + 4.5*elapsedSeconds).
func DistanceCapDigits(elapsedSeconds float64) int {
	return int(math.Floor(1 + 4.5*elapsedSeconds))
}

// WithinDistanceCap reports whether end's coordinate magnitude is legal
// for a game that has been running for elapsedSeconds.
func WithinDistanceCap(end match.Coords, elapsedSeconds float64) bool {
	return MaxDigits(end) <= DistanceCapDigits(elapsedSeconds)
}
