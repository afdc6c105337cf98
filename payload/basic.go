package payload

import (
	"fmt"
	"math/big"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
)

// Basic generates transaction payloads that call the target contracts
// directly, without going through a Safe module. Not the node's normal
// operating mode, but kept as the simpler of the two implementations the
// Generator interface admits.
type Basic struct {
	me  address.Address
	cfg chain.Config
}

// NewBasic constructs a Basic payload generator for the given node
// identity and chain configuration.
func NewBasic(me address.Address, cfg chain.Config) *Basic {
	return &Basic{me: me, cfg: cfg}
}

func (b *Basic) Approve(spender address.Address, amount *big.Int) (TxRequest, error) {
	data := append(selector("approve(address,uint256)")[:],
		concatWords(encodeAddress(spender), encodeUint(amount))...)
	return TxRequest{To: b.cfg.TokenAddress, Data: data, GasLimit: defaultTxGas}, nil
}

func (b *Basic) Transfer(destination address.Address, amount *big.Int, currency Currency) (TxRequest, error) {
	switch currency {
	case CurrencyNative:
		return TxRequest{To: destination, Value: amount, GasLimit: defaultTxGas}, nil
	case CurrencyWHOPR:
		data := append(selector("transfer(address,uint256)")[:],
			concatWords(encodeAddress(destination), encodeUint(amount))...)
		return TxRequest{To: b.cfg.TokenAddress, Data: data, GasLimit: defaultTxGas}, nil
	default:
		return TxRequest{}, fmt.Errorf("payload: unsupported currency %d", currency)
	}
}

func (b *Basic) Announce(a AnnouncementData) (TxRequest, error) {
	data := encodeAnnounceCall(a, nil)
	return TxRequest{To: b.cfg.AnnouncementsAddress, Data: data, GasLimit: defaultTxGas}, nil
}

func (b *Basic) FundChannel(dest address.Address, amount *big.Int) (TxRequest, error) {
	if dest.Equal(b.me) {
		return TxRequest{}, fmt.Errorf("payload: cannot fund channel to self")
	}
	data := append(selector("fundChannel(address,uint96)")[:],
		concatWords(encodeAddress(dest), encodeUint(amount))...)
	return TxRequest{To: b.cfg.ChannelsAddress, Data: data, GasLimit: defaultTxGas}, nil
}

func (b *Basic) CloseIncomingChannel(source address.Address) (TxRequest, error) {
	if source.Equal(b.me) {
		return TxRequest{}, fmt.Errorf("payload: cannot close incoming channel from self")
	}
	data := append(selector("closeIncomingChannel(address)")[:], encodeAddress(source)[:]...)
	return TxRequest{To: b.cfg.ChannelsAddress, Data: data, GasLimit: defaultTxGas}, nil
}

func (b *Basic) InitiateOutgoingChannelClosure(destination address.Address) (TxRequest, error) {
	if destination.Equal(b.me) {
		return TxRequest{}, fmt.Errorf("payload: cannot initiate closure of incoming channel to self")
	}
	data := append(selector("initiateOutgoingChannelClosure(address)")[:], encodeAddress(destination)[:]...)
	return TxRequest{To: b.cfg.ChannelsAddress, Data: data, GasLimit: defaultTxGas}, nil
}

func (b *Basic) FinalizeOutgoingChannelClosure(destination address.Address) (TxRequest, error) {
	if destination.Equal(b.me) {
		return TxRequest{}, fmt.Errorf("payload: cannot initiate closure of incoming channel to self")
	}
	data := append(selector("finalizeOutgoingChannelClosure(address)")[:], encodeAddress(destination)[:]...)
	return TxRequest{To: b.cfg.ChannelsAddress, Data: data, GasLimit: defaultTxGas}, nil
}

func (b *Basic) RedeemTicket(rt RedeemableTicket) (TxRequest, error) {
	log.Debugf("payload: redeem_ticket channel=%x index=%d", rt.Ticket.ChannelID, rt.Ticket.Index)
	data := encodeRedeemTicketCall(rt, nil)
	return TxRequest{To: b.cfg.ChannelsAddress, Data: data, GasLimit: defaultTxGas}, nil
}

func (b *Basic) RegisterSafeByNode(safeAddr address.Address) (TxRequest, error) {
	data := append(selector("registerSafeByNode(address)")[:], encodeAddress(safeAddr)[:]...)
	return TxRequest{To: b.cfg.NodeSafeRegistryAddress, Data: data, GasLimit: defaultTxGas}, nil
}

func (b *Basic) DeregisterNodeBySafe() (TxRequest, error) {
	return TxRequest{}, fmt.Errorf("payload: can only deregister an address if a Safe is activated")
}

var _ Generator = (*Basic)(nil)
