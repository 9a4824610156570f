// Package objects builds decorative props (rocks, trees, cacti) as small
// density fields meshed with marching cubes.
package objects

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrUnsupportedKind is returned when a lookup receives a kind outside the
// closed set below.
var ErrUnsupportedKind = errors.New("objects: unsupported kind")

// Kind is the closed set of decorative object variants.
type Kind uint8

const (
	Rock Kind = iota
	Tree
	JungleTree
	Cactus

	kindCount
)

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{Rock, Tree, JungleTree, Cactus}
}

func (k Kind) String() string {
	switch k {
	case Rock:
		return "rock"
	case Tree:
		return "tree"
	case JungleTree:
		return "jungle-tree"
	case Cactus:
		return "cactus"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) Valid() bool {
	return k < kindCount
}

// Item is what a placed object yields when harvested.
type Item uint8

const (
	ItemNone Item = iota
	ItemLog
	ItemStone
)

func (i Item) String() string {
	switch i {
	case ItemLog:
		return "log"
	case ItemStone:
		return "stone"
	default:
		return "none"
	}
}

// Drop is the harvest metadata attached to a placed object.
type Drop struct {
	Item  Item
	Count int
}

// DropFor decides the harvest yield of a new object of kind k.
func DropFor(k Kind, rng *rand.Rand) (Drop, error) {
	switch k {
	case Tree, JungleTree:
		return Drop{Item: ItemLog, Count: 1 + rng.Intn(2)}, nil
	case Rock:
		return Drop{Item: ItemStone, Count: 1}, nil
	case Cactus:
		return Drop{}, nil
	default:
		return Drop{}, fmt.Errorf("%w: %v", ErrUnsupportedKind, k)
	}
}
