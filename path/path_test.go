package path

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
	"github.com/stretchr/testify/require"
)

func testPacketKey(seed byte) address.PacketKey {
	var b [32]byte
	b[31] = seed
	priv, pub := btcec.PrivKeyFromBytes(b[:])
	_ = priv
	return address.NewPacketKey(pub)
}

type fakeGraph struct {
	channels map[[2]address.Address]chain.Channel
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{channels: make(map[[2]address.Address]chain.Channel)}
}

func (g *fakeGraph) open(u, v address.Address) {
	g.channels[[2]address.Address{u, v}] = chain.Channel{Status: chain.Open}
}

func (g *fakeGraph) Channel(src, dst address.Address) (chain.Channel, bool) {
	c, ok := g.channels[[2]address.Address{src, dst}]
	return c, ok
}

func (g *fakeGraph) ChannelByID(chain.ID) (chain.Channel, bool) { return chain.Channel{}, false }
func (g *fakeGraph) MinTicketPrice() *big.Int                   { return big.NewInt(0) }
func (g *fakeGraph) MinWinProb() float64                        { return 0 }
func (g *fakeGraph) DomainSeparator() [32]byte                  { return [32]byte{} }
func (g *fakeGraph) NextOutgoingIndex(chain.ID) (uint64, error) { return 0, nil }
func (g *fakeGraph) UnrealizedValue(chain.ID) (*big.Int, error) { return big.NewInt(0), nil }

func addr(b byte) address.Address {
	var a address.Address
	a[19] = b
	return a
}

func TestValidateAllowsNonAdjacentCycle(t *testing.T) {
	// 0 -> 1 -> 2 -> 3 -> 1 (non-adjacent repeat of 1, allowed)
	self, h1, h2, h3 := addr(0), addr(1), addr(2), addr(3)

	g := newFakeGraph()
	g.open(self, h1)
	g.open(h1, h2)
	g.open(h2, h3)
	g.open(h3, h1)

	err := Validate(self, []address.Address{h1, h2, h3, h1}, g)
	require.NoError(t, err)
}

func TestValidateRejectsAdjacentLoop(t *testing.T) {
	self, h1 := addr(0), addr(1)

	g := newFakeGraph()
	g.open(self, h1)
	g.open(h1, h1)

	err := Validate(self, []address.Address{h1, h1, addr(2)}, g)
	require.Error(t, err)
	require.IsType(t, &ErrLoopsNotAllowed{}, err)
}

func TestValidateRejectsFirstHopIsSelf(t *testing.T) {
	self := addr(0)

	g := newFakeGraph()

	err := Validate(self, []address.Address{self}, g)
	require.Error(t, err)
	require.IsType(t, &ErrLoopsNotAllowed{}, err)
}

func TestValidateRejectsMissingChannel(t *testing.T) {
	self, h1 := addr(0), addr(1)

	g := newFakeGraph()
	// no channel self -> h1

	err := Validate(self, []address.Address{h1}, g)
	require.Error(t, err)
	require.IsType(t, &ErrMissingChannel{}, err)
}

func TestResolveAppendsDestinationAndMapsKeys(t *testing.T) {
	self, h1, dest := addr(0), addr(1), addr(2)

	g := newFakeGraph()
	g.open(self, h1)
	g.open(h1, dest)

	mapper := address.NewKeyIDMapper()
	keys := map[address.Address]address.PacketKey{}
	for i, a := range []address.Address{self, h1, dest} {
		pk := testPacketKey(byte(i + 1))
		keys[a] = pk
		_, err := mapper.Register(pk, a)
		require.NoError(t, err)
	}

	resolved, err := Resolve(self, []address.Address{h1}, dest, g, mapper)
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	require.True(t, resolved[0].Equal(keys[h1]))
	require.True(t, resolved[1].Equal(keys[dest]))
}

func TestResolveFailsOnUnmappedPeer(t *testing.T) {
	self, h1, dest := addr(0), addr(1), addr(2)

	g := newFakeGraph()
	g.open(self, h1)
	g.open(h1, dest)

	mapper := address.NewKeyIDMapper()

	_, err := Resolve(self, []address.Address{h1}, dest, g, mapper)
	require.Error(t, err)
	require.IsType(t, &ErrInvalidPeer{}, err)
}
