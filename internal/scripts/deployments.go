package scripts

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultCodeJar is the CodeJar the fixture environment deploys scripts
// through. Script addresses are CREATE2 children of it.
var DefaultCodeJar = common.HexToAddress("0x2b68764bCfE9fCD8d5a30a281F141f69b69Ae3C8")

// Deployments maps script names to the addresses they are deployed at.
type Deployments struct {
	byName map[string]common.Address
	byAddr map[common.Address]string
}

// DeriveAddress returns the CREATE2 address of the named script under
// codeJar, using a zero salt and the keccak of the script name as the init
// code hash.
func DeriveAddress(codeJar common.Address, name string) common.Address {
	return crypto.CreateAddress2(codeJar, [32]byte{}, crypto.Keccak256([]byte(name)))
}

// NewDeployments derives an address for every catalogued script under codeJar.
func NewDeployments(codeJar common.Address) *Deployments {
	d := &Deployments{
		byName: make(map[string]common.Address, len(catalogue)),
		byAddr: make(map[common.Address]string, len(catalogue)),
	}
	for name := range catalogue {
		d.set(name, DeriveAddress(codeJar, name))
	}
	return d
}

// DefaultDeployments is NewDeployments(DefaultCodeJar).
func DefaultDeployments() *Deployments {
	return NewDeployments(DefaultCodeJar)
}

func (d *Deployments) set(name string, addr common.Address) {
	if old, ok := d.byName[name]; ok {
		delete(d.byAddr, old)
	}
	d.byName[name] = addr
	d.byAddr[addr] = name
}

// Override pins a script to a specific address.
func (d *Deployments) Override(name, hexAddr string) error {
	if _, ok := catalogue[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScript, name)
	}
	if !common.IsHexAddress(hexAddr) {
		return fmt.Errorf("invalid address %q for %s", hexAddr, name)
	}
	addr := common.HexToAddress(hexAddr)
	if other, ok := d.byAddr[addr]; ok && other != name {
		return fmt.Errorf("address %s already assigned to %s", addr.Hex(), other)
	}
	d.set(name, addr)
	return nil
}

// Address returns where the named script is deployed.
func (d *Deployments) Address(name string) (common.Address, bool) {
	addr, ok := d.byName[name]
	return addr, ok
}

// MustAddress is Address for names known to be catalogued.
func (d *Deployments) MustAddress(name string) common.Address {
	addr, ok := d.byName[name]
	if !ok {
		panic(fmt.Sprintf("scripts: no deployment for %s", name))
	}
	return addr
}

// ScriptAt returns the script deployed at addr.
func (d *Deployments) ScriptAt(addr common.Address) (*Script, bool) {
	name, ok := d.byAddr[addr]
	if !ok {
		return nil, false
	}
	return catalogue[name], true
}

// Names returns deployed script names sorted alphabetically.
func (d *Deployments) Names() []string {
	names := make([]string, 0, len(d.byName))
	for name := range d.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
