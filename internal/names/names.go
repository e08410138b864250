// Package names turns opaque peer ids into stable, human-friendly nicknames.
package names

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 4096

var adjectives = []string{
	"agile", "bold", "bright", "calm", "clever", "curious", "daring", "eager",
	"fierce", "gentle", "giant", "graceful", "hasty", "humble", "jolly", "keen",
	"lively", "loud", "lucky", "mighty", "nimble", "noisy", "patient", "playful",
	"proud", "quick", "quiet", "rapid", "shiny", "silent", "sleek", "sly",
	"sneaky", "stealthy", "stinky", "sturdy", "swift", "tall", "thorny", "tiny",
	"tough", "vicious", "wild", "wise", "witty", "zealous",
}

var colors = []string{
	"amber", "azure", "beige", "black", "blue", "bronze", "coral", "crimson",
	"cyan", "emerald", "fuchsia", "golden", "gray", "green", "indigo", "ivory",
	"jade", "lavender", "lime", "magenta", "maroon", "mauve", "navy", "ochre",
	"olive", "orange", "peach", "pink", "plum", "purple", "red", "rose",
	"ruby", "rust", "scarce", "silver", "tan", "teal", "turquoise", "violet",
	"white", "yellow",
}

var animals = []string{
	"albatross", "alpaca", "ant", "armadillo", "badger", "bat", "bear", "beaver",
	"bee", "bison", "buffalo", "camel", "cat", "chameleon", "cheetah", "cobra",
	"crab", "crane", "crow", "deer", "dingo", "dolphin", "eagle", "eel",
	"elephant", "falcon", "ferret", "finch", "flamingo", "fox", "frog", "gazelle",
	"gecko", "goat", "gorilla", "hamster", "hawk", "hedgehog", "heron", "hyena",
	"ibis", "jackal", "jaguar", "kangaroo", "koala", "lemur", "leopard", "lion",
	"lizard", "llama", "lobster", "lynx", "macaw", "mole", "mongoose", "moose",
	"mouse", "octopus", "ostrich", "otter", "owl", "panda", "panther", "parrot",
	"pelican", "penguin", "porcupine", "rabbit", "raccoon", "raven", "rhino", "salamander",
	"seal", "shark", "sheep", "sloth", "snake", "sparrow", "spider", "squid",
	"squirrel", "swan", "tiger", "toad", "tortoise", "turtle", "viper", "vulture",
	"walrus", "weasel", "whale", "wolf", "wombat", "yak", "zebra",
}

// Generate derives the nickname for peerID. The same id always yields the
// same "adjective color animal" triple.
func Generate(peerID string) string {
	sum := sha256.Sum256([]byte(peerID))
	a := binary.BigEndian.Uint64(sum[0:8])
	c := binary.BigEndian.Uint64(sum[8:16])
	n := binary.BigEndian.Uint64(sum[16:24])

	return strings.Join([]string{
		adjectives[a%uint64(len(adjectives))],
		colors[c%uint64(len(colors))],
		animals[n%uint64(len(animals))],
	}, " ")
}

// Namer memoizes Generate in a bounded LRU; peer sets are large but stable.
type Namer struct {
	cache *lru.Cache[string, string]
}

func NewNamer(size int) (*Namer, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create name cache: %w", err)
	}
	return &Namer{cache: cache}, nil
}

// NameFor returns the nickname for peerID.
func (n *Namer) NameFor(peerID string) string {
	if name, ok := n.cache.Get(peerID); ok {
		return name
	}
	name := Generate(peerID)
	n.cache.Add(peerID, name)
	return name
}
