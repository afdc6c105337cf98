package payload

import (
	"fmt"
	"math/big"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
)

// safeOperationCall is Gnosis Safe's "Call" operation code, the only
// operation type execTransactionFromModule is ever invoked with here
// (DelegateCall is deliberately never used).
const safeOperationCall = 0

// Safe generates transaction payloads that route channel and
// announcement actions through the node's Safe module via
// execTransactionFromModule, while token approvals/transfers and Safe
// (de)registration still target their contracts directly — the node's
// normal operating mode.
type Safe struct {
	me     address.Address
	cfg    chain.Config
	module address.Address
}

// NewSafe constructs a Safe payload generator for the given node
// identity, chain configuration, and Safe module address.
func NewSafe(me address.Address, cfg chain.Config, module address.Address) *Safe {
	return &Safe{me: me, cfg: cfg, module: module}
}

// wrapForModule wraps callData as an execTransactionFromModule call
// targeting to, addressed to the Safe module itself. The call has four
// parameters (to, value, data, operation); data is the only dynamic one,
// so the head holds four words — to, value, the offset to data, and the
// trailing static operation word — with data's length-prefixed bytes in
// the tail right after the head.
func (s *Safe) wrapForModule(to address.Address, callData []byte) []byte {
	sig := "execTransactionFromModule(address,uint256,bytes,uint8)"
	const headWords = 4
	offset := uint64(headWords * 32)

	head := concatWords(
		encodeAddress(to),
		encodeUint(big.NewInt(0)),
		encodeUint64(offset),
		encodeUint8(safeOperationCall),
	)
	tail := encodeDynamicBytes(callData)

	out := append(selector(sig)[:], head...)
	return append(out, tail...)
}

func encodeDynamicBytes(b []byte) []byte {
	padded := (len(b) + 31) / 32 * 32
	out := make([]byte, 0, 32+padded)
	out = append(out, encodeUint64(uint64(len(b)))[:]...)
	buf := make([]byte, padded)
	copy(buf, b)
	return append(out, buf...)
}

func (s *Safe) Approve(spender address.Address, amount *big.Int) (TxRequest, error) {
	data := append(selector("approve(address,uint256)")[:],
		concatWords(encodeAddress(spender), encodeUint(amount))...)
	return TxRequest{To: s.cfg.TokenAddress, Data: data, GasLimit: defaultTxGas}, nil
}

func (s *Safe) Transfer(destination address.Address, amount *big.Int, currency Currency) (TxRequest, error) {
	switch currency {
	case CurrencyNative:
		return TxRequest{To: destination, Value: amount, GasLimit: defaultTxGas}, nil
	case CurrencyWHOPR:
		data := append(selector("transfer(address,uint256)")[:],
			concatWords(encodeAddress(destination), encodeUint(amount))...)
		return TxRequest{To: s.cfg.TokenAddress, Data: data, GasLimit: defaultTxGas}, nil
	default:
		return TxRequest{}, fmt.Errorf("payload: unsupported currency %d", currency)
	}
}

func (s *Safe) Announce(a AnnouncementData) (TxRequest, error) {
	inner := encodeAnnounceCall(a, &s.me)
	data := s.wrapForModule(s.cfg.AnnouncementsAddress, inner)
	return TxRequest{To: s.module, Data: data, GasLimit: defaultTxGas}, nil
}

func (s *Safe) FundChannel(dest address.Address, amount *big.Int) (TxRequest, error) {
	if dest.Equal(s.me) {
		return TxRequest{}, fmt.Errorf("payload: cannot fund channel to self")
	}
	inner := append(selector("fundChannelSafe(address,address,uint96)")[:],
		concatWords(encodeAddress(s.me), encodeAddress(dest), encodeUint(amount))...)
	data := s.wrapForModule(s.cfg.ChannelsAddress, inner)
	return TxRequest{To: s.module, Data: data, GasLimit: defaultTxGas}, nil
}

func (s *Safe) CloseIncomingChannel(source address.Address) (TxRequest, error) {
	if source.Equal(s.me) {
		return TxRequest{}, fmt.Errorf("payload: cannot close incoming channel from self")
	}
	inner := append(selector("closeIncomingChannelSafe(address,address)")[:],
		concatWords(encodeAddress(s.me), encodeAddress(source))...)
	data := s.wrapForModule(s.cfg.ChannelsAddress, inner)
	return TxRequest{To: s.module, Data: data, GasLimit: defaultTxGas}, nil
}

func (s *Safe) InitiateOutgoingChannelClosure(destination address.Address) (TxRequest, error) {
	if destination.Equal(s.me) {
		return TxRequest{}, fmt.Errorf("payload: cannot initiate closure of incoming channel to self")
	}
	inner := append(selector("initiateOutgoingChannelClosureSafe(address,address)")[:],
		concatWords(encodeAddress(s.me), encodeAddress(destination))...)
	data := s.wrapForModule(s.cfg.ChannelsAddress, inner)
	return TxRequest{To: s.module, Data: data, GasLimit: defaultTxGas}, nil
}

func (s *Safe) FinalizeOutgoingChannelClosure(destination address.Address) (TxRequest, error) {
	if destination.Equal(s.me) {
		return TxRequest{}, fmt.Errorf("payload: cannot initiate closure of incoming channel to self")
	}
	inner := append(selector("finalizeOutgoingChannelClosureSafe(address,address)")[:],
		concatWords(encodeAddress(s.me), encodeAddress(destination))...)
	data := s.wrapForModule(s.cfg.ChannelsAddress, inner)
	return TxRequest{To: s.module, Data: data, GasLimit: defaultTxGas}, nil
}

func (s *Safe) RedeemTicket(rt RedeemableTicket) (TxRequest, error) {
	log.Debugf("payload: redeem_ticket (safe) channel=%x index=%d", rt.Ticket.ChannelID, rt.Ticket.Index)
	inner := encodeRedeemTicketCall(rt, &s.me)
	data := s.wrapForModule(s.cfg.ChannelsAddress, inner)
	return TxRequest{To: s.module, Data: data, GasLimit: defaultTxGas}, nil
}

func (s *Safe) RegisterSafeByNode(safeAddr address.Address) (TxRequest, error) {
	data := append(selector("registerSafeByNode(address)")[:], encodeAddress(safeAddr)[:]...)
	return TxRequest{To: s.cfg.NodeSafeRegistryAddress, Data: data, GasLimit: defaultTxGas}, nil
}

func (s *Safe) DeregisterNodeBySafe() (TxRequest, error) {
	data := append(selector("deregisterNodeBySafe(address)")[:], encodeAddress(s.me)[:]...)
	return TxRequest{To: s.cfg.NodeSafeRegistryAddress, Data: data, GasLimit: defaultTxGas}, nil
}

var _ Generator = (*Safe)(nil)
