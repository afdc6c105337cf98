package ticket

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
)

func TestVerifySignatureAcceptsGenuine(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	signer := NewLocalSigner(priv, addrFromByte(1))

	tk := Ticket{
		ChannelID:      chain.ID{0xAA},
		Amount:         big.NewInt(1000),
		IndexOffset:    1,
		Epoch:          3,
		EncodedWinProb: EncodeWinProb(0.5),
	}
	var sep [32]byte
	msg := SigningPreimage(tk, sep)
	sig := signTicketForTest(t, signer, tk, sep)

	require.True(t, verifySignature(signer.PacketKey(), msg, sig))
}

func TestVerifySignatureRejectsTamperedMessage(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	signer := NewLocalSigner(priv, addrFromByte(1))

	tk := Ticket{ChannelID: chain.ID{0xAA}, Amount: big.NewInt(1000), IndexOffset: 1, EncodedWinProb: EncodeWinProb(0.5)}
	var sep [32]byte
	sig := signTicketForTest(t, signer, tk, sep)

	tampered := tk
	tampered.Amount = big.NewInt(1001)
	msg := SigningPreimage(tampered, sep)

	require.False(t, verifySignature(signer.PacketKey(), msg, sig))
}

func TestVerifySignatureRejectsWrongKey(t *testing.T) {
	signerKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	signer := NewLocalSigner(signerKey, addrFromByte(1))

	otherKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other := NewLocalSigner(otherKey, addrFromByte(2))

	tk := Ticket{ChannelID: chain.ID{0xAA}, Amount: big.NewInt(1000), IndexOffset: 1, EncodedWinProb: EncodeWinProb(0.5)}
	var sep [32]byte
	msg := SigningPreimage(tk, sep)
	sig := signTicketForTest(t, signer, tk, sep)

	require.False(t, verifySignature(other.PacketKey(), msg, sig))
}

func TestVerifySignatureRejectsZeroPacketKey(t *testing.T) {
	require.False(t, verifySignature(address.PacketKey{}, []byte("anything"), Signature{}))
}
