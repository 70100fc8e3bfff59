package link

import "fmt"

// Nature is the kind of relationship between two variables. Lower values are
// more informative: STATICALLY_ASSIGNED is identity, INDEPENDENT means no
// runtime aliasing is possible. DELAYED marks a value that cannot be computed
// yet; it sits outside the order.
type Nature int8

const (
	Delayed            Nature = -1
	StaticallyAssigned Nature = 0
	Assigned           Nature = 1
	Dependent          Nature = 2
	CommonHC           Nature = 4
	Independent        Nature = 5
)

// Natures lists all natures in order of decreasing strength, DELAYED last.
var Natures = []Nature{StaticallyAssigned, Assigned, Dependent, CommonHC, Independent, Delayed}

func (n Nature) String() string {
	switch n {
	case Delayed:
		return "delayed"
	case StaticallyAssigned:
		return "statically_assigned"
	case Assigned:
		return "assigned"
	case Dependent:
		return "dependent"
	case CommonHC:
		return "common_hc"
	case Independent:
		return "independent"
	default:
		return fmt.Sprintf("nature(%d)", int8(n))
	}
}

// Symbol is the compact notation used in LV strings.
func (n Nature) Symbol() string {
	if n == Delayed {
		return "D"
	}
	return fmt.Sprintf("%d", int8(n))
}

// Valid reports whether n is one of the defined natures.
func (n Nature) Valid() bool {
	switch n {
	case Delayed, StaticallyAssigned, Assigned, Dependent, CommonHC, Independent:
		return true
	}
	return false
}

func (n Nature) IsDelayed() bool {
	return n == Delayed
}

// HasIndices reports whether values of this nature carry index links.
func (n Nature) HasIndices() bool {
	return n == Dependent || n == CommonHC
}

// Best returns the more informative of two natures believed to hold for the
// same pair. A delay is only beaten by identity.
func Best(a, b Nature) Nature {
	if a == Delayed {
		if b == StaticallyAssigned {
			return b
		}
		return a
	}
	if b == Delayed {
		if a == StaticallyAssigned {
			return a
		}
		return b
	}
	if a < b {
		return a
	}
	return b
}

// Combine returns the nature describing "either a or b holds". Delays absorb.
func Combine(a, b Nature) Nature {
	if a == Delayed || b == Delayed {
		return Delayed
	}
	if a > b {
		return a
	}
	return b
}

// AtMost reports whether n is at least as strong as ceiling. Delays always
// qualify: an unknown value must never be mistaken for a weak one.
func (n Nature) AtMost(ceiling Nature) bool {
	return n == Delayed || n <= ceiling
}

// PropagatesModification reports whether modifying one side of a link of
// this nature modifies the other side.
func (n Nature) PropagatesModification() bool {
	return n == StaticallyAssigned || n == Assigned || n == Dependent
}
