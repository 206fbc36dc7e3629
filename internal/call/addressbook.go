package call

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// AddressBook gives symbolic names to addresses so decoded calls read as
// "recipient=bob" instead of a 40-digit hex string.
type AddressBook struct {
	names map[common.Address]string
}

// NewAddressBook returns an empty book.
func NewAddressBook() *AddressBook {
	return &AddressBook{names: make(map[common.Address]string)}
}

// Add names addr. Re-adding an address replaces its name.
func (b *AddressBook) Add(name string, addr common.Address) {
	b.names[addr] = name
}

// Name returns the name registered for addr.
func (b *AddressBook) Name(addr common.Address) (string, bool) {
	if b == nil {
		return "", false
	}
	name, ok := b.names[addr]
	return name, ok
}

// Render returns addr's name, or its checksummed hex when unnamed.
func (b *AddressBook) Render(addr common.Address) string {
	if name, ok := b.Name(addr); ok {
		return name
	}
	return addr.Hex()
}

// Len returns the number of named addresses.
func (b *AddressBook) Len() int { return len(b.names) }

// Entries returns name→address pairs sorted by name.
func (b *AddressBook) Entries() [][2]string {
	out := make([][2]string, 0, len(b.names))
	for addr, name := range b.names {
		out = append(out, [2]string{name, addr.Hex()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
