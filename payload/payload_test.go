package payload

import (
	"math/big"
	"testing"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
	"github.com/hoprnet/hopr-relay-core/ticket"
	"github.com/stretchr/testify/require"
)

func addrFromByte(b byte) address.Address {
	var a address.Address
	a[19] = b
	return a
}

func testConfig() chain.Config {
	return chain.Config{
		ChainID:                 big.NewInt(100),
		TokenAddress:            addrFromByte(0x10),
		ChannelsAddress:         addrFromByte(0x20),
		AnnouncementsAddress:    addrFromByte(0x30),
		NodeSafeRegistryAddress: addrFromByte(0x40),
		ModuleAddress:           addrFromByte(0x50),
	}
}

func TestBasicApproveEncodesSelectorAndArgs(t *testing.T) {
	me := addrFromByte(1)
	cfg := testConfig()
	b := NewBasic(me, cfg)

	tx, err := b.Approve(addrFromByte(2), big.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, cfg.TokenAddress, tx.To)
	require.Len(t, tx.Data, 4+32+32)
	require.Equal(t, selector("approve(address,uint256)")[:], tx.Data[:4])
}

func TestBasicFundChannelRejectsSelf(t *testing.T) {
	me := addrFromByte(1)
	b := NewBasic(me, testConfig())

	_, err := b.FundChannel(me, big.NewInt(1))
	require.Error(t, err)
}

func TestBasicDeregisterNodeBySafeIsUnavailable(t *testing.T) {
	b := NewBasic(addrFromByte(1), testConfig())

	_, err := b.DeregisterNodeBySafe()
	require.Error(t, err)
}

func TestSafeFundChannelWrapsThroughModuleAndRejectsSelf(t *testing.T) {
	me := addrFromByte(1)
	cfg := testConfig()
	s := NewSafe(me, cfg, cfg.ModuleAddress)

	tx, err := s.FundChannel(addrFromByte(2), big.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, cfg.ModuleAddress, tx.To)
	require.Equal(t, selector("execTransactionFromModule(address,uint256,bytes,uint8)")[:], tx.Data[:4])

	_, err = s.FundChannel(me, big.NewInt(1))
	require.Error(t, err)
}

func TestSafeDeregisterNodeBySafeIsAvailable(t *testing.T) {
	s := NewSafe(addrFromByte(1), testConfig(), addrFromByte(0x50))

	tx, err := s.DeregisterNodeBySafe()
	require.NoError(t, err)
	require.NotEmpty(t, tx.Data)
}

func TestRedeemTicketEncodesTicketDataAndWitness(t *testing.T) {
	rt := RedeemableTicket{
		Ticket: ticket.Ticket{
			Amount:         big.NewInt(1000),
			Index:          7,
			IndexOffset:    1,
			Epoch:          3,
			EncodedWinProb: ticket.EncodeWinProb(0.5),
		},
	}

	b := NewBasic(addrFromByte(1), testConfig())
	tx, err := b.RedeemTicket(rt)
	require.NoError(t, err)

	// selector(4) + TicketData(6 words) + Signature(2 words) +
	// response(1 word) + VRFParameters(8 words).
	require.Len(t, tx.Data, 4+32*(6+2+1+8))
}

type fakeChainSigner struct {
	addr address.Address
}

func (s fakeChainSigner) Address() address.Address { return s.addr }

func (s fakeChainSigner) SignDigest(digest [32]byte) (r, s2 *big.Int, recoveryID byte, err error) {
	return new(big.Int).SetBytes(digest[:16]), new(big.Int).SetBytes(digest[16:]), 1, nil
}

func TestSignAndEncodeProducesEIP1559Envelope(t *testing.T) {
	tx := TxRequest{
		To:        addrFromByte(9),
		Value:     big.NewInt(0),
		Data:      []byte{0xde, 0xad, 0xbe, 0xef},
		GasLimit:  21000,
		Nonce:     4,
		ChainID:   big.NewInt(100),
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
	}

	encoded, err := SignAndEncode(tx, fakeChainSigner{addr: addrFromByte(1)})
	require.NoError(t, err)
	require.Equal(t, byte(eip1559TxType), encoded[0])
	// RLP list prefix follows the type byte.
	require.GreaterOrEqual(t, encoded[1], byte(0xc0))
}

func TestSignAndEncodeRequiresChainID(t *testing.T) {
	_, err := SignAndEncode(TxRequest{}, fakeChainSigner{})
	require.Error(t, err)
}
