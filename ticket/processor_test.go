package ticket

import (
	"math/big"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	mu       sync.Mutex
	channels map[[2]address.Address]chain.Channel
	indices  map[chain.ID]uint64
	minPrice *big.Int
	minWin   float64
	sep      [32]byte
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		channels: make(map[[2]address.Address]chain.Channel),
		indices:  make(map[chain.ID]uint64),
		minPrice: big.NewInt(100),
		minWin:   0.01,
	}
}

func (f *fakeChain) addChannel(src, dst address.Address, id chain.ID, balance int64, epoch uint32) {
	f.channels[[2]address.Address{src, dst}] = chain.Channel{
		ID: id, Source: src, Destination: dst,
		Balance: big.NewInt(balance), Epoch: epoch, Status: chain.Open,
	}
}

func (f *fakeChain) Channel(src, dst address.Address) (chain.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.channels[[2]address.Address{src, dst}]
	return c, ok
}

func (f *fakeChain) ChannelByID(id chain.ID) (chain.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.channels {
		if c.ID == id {
			return c, true
		}
	}
	return chain.Channel{}, false
}

func (f *fakeChain) MinTicketPrice() *big.Int  { return f.minPrice }
func (f *fakeChain) MinWinProb() float64       { return f.minWin }
func (f *fakeChain) DomainSeparator() [32]byte { return f.sep }

func (f *fakeChain) NextOutgoingIndex(id chain.ID) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indices[id]++
	return f.indices[id], nil
}

func (f *fakeChain) UnrealizedValue(id chain.ID) (*big.Int, error) {
	return big.NewInt(0), nil
}

type fakeSigner struct {
	addr address.Address
}

func (s fakeSigner) Address() address.Address { return s.addr }
func (s fakeSigner) ChainKey() []byte         { return []byte("fake-chain-key") }
func (s fakeSigner) Sign(msg []byte) (Signature, error) {
	var sig Signature
	copy(sig.R[:], msg)
	return sig, nil
}

func addrFromByte(b byte) address.Address {
	var a address.Address
	a[19] = b
	return a
}

// registerIssuer generates a fresh secp256k1 key pair, binds it to addr in
// mapper, and returns a LocalSigner so the caller can sign tickets that
// validateIncoming's signature check will accept.
func registerIssuer(t *testing.T, mapper *address.KeyIDMapper, addr address.Address) LocalSigner {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	signer := NewLocalSigner(priv, addr)

	_, err = mapper.Register(signer.PacketKey(), addr)
	require.NoError(t, err)

	return signer
}

// signTicketForTest produces the signature validateIncoming expects.
func signTicketForTest(t *testing.T, signer LocalSigner, tk Ticket, domainSeparator [32]byte) Signature {
	signed, err := Sign(tk, domainSeparator, signer)
	require.NoError(t, err)
	return signed.Signature
}

func TestValidateAndReplaceTicketInteriorHop(t *testing.T) {
	me := addrFromByte(1)
	prev := addrFromByte(2)
	next := addrFromByte(3)

	fc := newFakeChain()
	inID := chain.ID{0xAA}
	outID := chain.ID{0xBB}
	fc.addChannel(prev, me, inID, 10_000, 7)
	fc.addChannel(me, next, outID, 10_000, 3)

	unack := NewUnackTicketTable(UnackTicketTableConfig{})
	mapper := address.NewKeyIDMapper()
	issuer := registerIssuer(t, mapper, prev)
	proc := NewProcessor(ProcessorConfig{
		OutgoingWinProb: 0.5,
		OutgoingPrice:   big.NewInt(100),
	}, fc, unack, mapper, fakeSigner{addr: me})

	tk := Ticket{
		ChannelID:      inID,
		Amount:         big.NewInt(1000),
		IndexOffset:    1,
		Epoch:          7,
		EncodedWinProb: EncodeWinProb(0.5),
	}
	tk.Signature = signTicketForTest(t, issuer, tk, fc.sep)

	in := ForwardedInput{
		Ticket:      tk,
		PreviousHop: prev,
		NextHop:     next,
		PathPos:     2,
	}

	replacement, err := proc.ValidateAndReplaceTicket(in)
	require.NoError(t, err)
	require.Equal(t, outID, replacement.ChannelID)
	require.Equal(t, uint32(3), replacement.Epoch)
	require.Equal(t, uint64(1), replacement.Index)
	require.GreaterOrEqual(t, replacement.WinProb(), 0.5)
	require.Equal(t, 1, unack.Len())
}

func TestValidateAndReplaceTicketLastHopMintsZeroHop(t *testing.T) {
	me := addrFromByte(1)
	prev := addrFromByte(2)
	next := addrFromByte(3) // destination

	fc := newFakeChain()
	inID := chain.ID{0xAA}
	fc.addChannel(prev, me, inID, 10_000, 1)

	unack := NewUnackTicketTable(UnackTicketTableConfig{})
	mapper := address.NewKeyIDMapper()
	issuer := registerIssuer(t, mapper, prev)
	proc := NewProcessor(ProcessorConfig{OutgoingWinProb: 0.5, OutgoingPrice: big.NewInt(100)},
		fc, unack, mapper, fakeSigner{addr: me})

	tk := Ticket{
		ChannelID:      inID,
		Amount:         big.NewInt(0),
		IndexOffset:    1,
		Epoch:          1,
		EncodedWinProb: EncodeWinProb(1.0),
	}
	tk.Signature = signTicketForTest(t, issuer, tk, fc.sep)

	in := ForwardedInput{
		Ticket:      tk,
		PreviousHop: prev,
		NextHop:     next,
		PathPos:     1,
	}

	replacement, err := proc.ValidateAndReplaceTicket(in)
	require.NoError(t, err)
	require.Equal(t, int64(0), replacement.Amount.Int64())
}

func TestValidateAndReplaceTicketRejectsUnderpriced(t *testing.T) {
	me := addrFromByte(1)
	prev := addrFromByte(2)
	next := addrFromByte(3)

	fc := newFakeChain()
	inID := chain.ID{0xAA}
	fc.addChannel(prev, me, inID, 10_000, 1)
	fc.addChannel(me, next, chain.ID{0xBB}, 10_000, 1)

	unack := NewUnackTicketTable(UnackTicketTableConfig{})
	mapper := address.NewKeyIDMapper()
	issuer := registerIssuer(t, mapper, prev)
	proc := NewProcessor(ProcessorConfig{OutgoingWinProb: 0.5, OutgoingPrice: big.NewInt(100)},
		fc, unack, mapper, fakeSigner{addr: me})

	tk := Ticket{
		ChannelID:      inID,
		Amount:         big.NewInt(1), // far below min required
		IndexOffset:    1,
		Epoch:          1,
		EncodedWinProb: EncodeWinProb(1.0),
	}
	tk.Signature = signTicketForTest(t, issuer, tk, fc.sep)

	in := ForwardedInput{
		Ticket:      tk,
		PreviousHop: prev,
		NextHop:     next,
		PathPos:     2,
	}

	_, err := proc.ValidateAndReplaceTicket(in)
	require.Error(t, err)
	require.IsType(t, &ErrTicketValidation{}, err)
	require.Equal(t, 0, unack.Len())
}

func TestValidateAndReplaceTicketRejectsForgedSignature(t *testing.T) {
	me := addrFromByte(1)
	prev := addrFromByte(2)
	next := addrFromByte(3)

	fc := newFakeChain()
	inID := chain.ID{0xAA}
	fc.addChannel(prev, me, inID, 10_000, 1)
	fc.addChannel(me, next, chain.ID{0xBB}, 10_000, 1)

	unack := NewUnackTicketTable(UnackTicketTableConfig{})
	mapper := address.NewKeyIDMapper()
	registerIssuer(t, mapper, prev)
	impostorKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	impostor := NewLocalSigner(impostorKey, addrFromByte(9))

	proc := NewProcessor(ProcessorConfig{OutgoingWinProb: 0.5, OutgoingPrice: big.NewInt(100)},
		fc, unack, mapper, fakeSigner{addr: me})

	tk := Ticket{
		ChannelID:      inID,
		Amount:         big.NewInt(1000),
		IndexOffset:    1,
		Epoch:          1,
		EncodedWinProb: EncodeWinProb(1.0),
	}
	// Signed by a key other than the one registered for prev.
	tk.Signature = signTicketForTest(t, impostor, tk, fc.sep)

	in := ForwardedInput{
		Ticket:      tk,
		PreviousHop: prev,
		NextHop:     next,
		PathPos:     1,
	}

	_, err = proc.ValidateAndReplaceTicket(in)
	require.Error(t, err)
	require.IsType(t, &ErrTicketValidation{}, err)
	require.Equal(t, 0, unack.Len())
}

func TestValidateAndReplaceTicketRejectsUnregisteredIssuer(t *testing.T) {
	me := addrFromByte(1)
	prev := addrFromByte(2)
	next := addrFromByte(3)

	fc := newFakeChain()
	inID := chain.ID{0xAA}
	fc.addChannel(prev, me, inID, 10_000, 1)
	fc.addChannel(me, next, chain.ID{0xBB}, 10_000, 1)

	unack := NewUnackTicketTable(UnackTicketTableConfig{})
	proc := NewProcessor(ProcessorConfig{OutgoingWinProb: 0.5, OutgoingPrice: big.NewInt(100)},
		fc, unack, address.NewKeyIDMapper(), fakeSigner{addr: me})

	in := ForwardedInput{
		Ticket: Ticket{
			ChannelID:      inID,
			Amount:         big.NewInt(1000),
			IndexOffset:    1,
			Epoch:          1,
			EncodedWinProb: EncodeWinProb(1.0),
		},
		PreviousHop: prev,
		NextHop:     next,
		PathPos:     1,
	}

	_, err := proc.ValidateAndReplaceTicket(in)
	require.Error(t, err)
	require.IsType(t, &ErrTicketValidation{}, err)
}

func TestFindTicketToAcknowledgeSenderPath(t *testing.T) {
	fc := newFakeChain()
	unack := NewUnackTicketTable(UnackTicketTableConfig{})
	proc := NewProcessor(ProcessorConfig{}, fc, unack, address.NewKeyIDMapper(),
		fakeSigner{addr: addrFromByte(1)})

	var c Challenge
	c[0] = 5
	unack.Insert(c, WaitingAsSender{})

	res, err := proc.FindTicketToAcknowledge(c, HalfKey{})
	require.NoError(t, err)
	require.IsType(t, Sending{}, res)
}

func TestFindTicketToAcknowledgeNotFound(t *testing.T) {
	fc := newFakeChain()
	unack := NewUnackTicketTable(UnackTicketTableConfig{})
	proc := NewProcessor(ProcessorConfig{}, fc, unack, address.NewKeyIDMapper(),
		fakeSigner{addr: addrFromByte(1)})

	_, err := proc.FindTicketToAcknowledge(Challenge{}, HalfKey{})
	require.Error(t, err)
	require.IsType(t, &ErrUnacknowledgedTicketNotFound{}, err)
}
