package ticket

import (
	"math/big"

	"github.com/hoprnet/hopr-relay-core/address"
	"github.com/hoprnet/hopr-relay-core/chain"
)

// Signer produces ticket signatures and half-keys on behalf of the local
// node's chain identity.
type Signer interface {
	Address() address.Address
	ChainKey() []byte
	Sign(msg []byte) (Signature, error)
}

// ForwardedInput is the narrow view of a decoded Forwarded packet the
// ticket processor needs: the incoming ticket plus the routing context
// that determines how much the replacement ticket must be worth. Kept
// separate from the packet package's own Forwarded type to avoid a import
// cycle between packet (which carries tickets) and ticket (which doesn't
// need to know about onion framing).
type ForwardedInput struct {
	Ticket      Ticket
	PreviousHop address.Address
	NextHop     address.Address

	// OwnHalfKey is this node's own half-key share for the packet,
	// produced during onion decoding; stored alongside the pending
	// ticket so it can later be combined with the acknowledgement's
	// half-key to resolve a win or loss.
	OwnHalfKey HalfKey

	// PathPos is this node's 1-indexed position from the final
	// destination: 1 means this is the last relay hop before the
	// destination (so the replacement ticket is a zero-hop ticket),
	// anything greater mints a priced replacement.
	PathPos int
}

// ProcessorConfig carries the local node's outgoing pricing policy.
type ProcessorConfig struct {
	OutgoingWinProb float64
	OutgoingPrice   *big.Int
}

// Processor implements ticket validation, replacement minting, and
// acknowledgement resolution (component E).
type Processor struct {
	cfg    ProcessorConfig
	chain  chain.Values
	unack  *UnackTicketTable
	mapper *address.KeyIDMapper
	signer Signer
}

// NewProcessor constructs a ticket processor wired to the given chain
// view, unacknowledged-ticket table, key mapper, and signer.
func NewProcessor(cfg ProcessorConfig, cv chain.Values, unack *UnackTicketTable,
	mapper *address.KeyIDMapper, signer Signer) *Processor {

	return &Processor{
		cfg:    cfg,
		chain:  cv,
		unack:  unack,
		mapper: mapper,
		signer: signer,
	}
}

// ValidateAndReplaceTicket validates the ticket carried by a decoded
// Forwarded packet against the incoming channel and chain parameters,
// records it as WaitingAsRelayer, and mints the signed replacement ticket
// for the next hop.
func (p *Processor) ValidateAndReplaceTicket(in ForwardedInput) (Ticket, error) {
	me := p.signer.Address()

	inChannel, ok := p.chain.Channel(in.PreviousHop, me)
	if !ok {
		return Ticket{}, &ErrChannelNotFound{Source: in.PreviousHop, Destination: me}
	}

	if inChannel.ID != in.Ticket.ChannelID {
		return Ticket{}, &ErrInvalidState{Msg: "ticket channel_id does not match resolved incoming channel"}
	}

	minPrice := p.chain.MinTicketPrice()
	minRequired := new(big.Int).Mul(minPrice, big.NewInt(int64(in.PathPos)))

	unrealized, err := p.chain.UnrealizedValue(inChannel.ID)
	if err != nil {
		return Ticket{}, err
	}
	remaining := new(big.Int).Sub(inChannel.Balance, unrealized)

	if err := p.validateIncoming(in.Ticket, in.PreviousHop, inChannel, minRequired, remaining); err != nil {
		return Ticket{}, err
	}

	p.unack.Insert(in.Ticket.AckChallenge, WaitingAsRelayer{
		Ticket:  in.Ticket,
		HalfKey: in.OwnHalfKey,
		Issuer:  in.PreviousHop,
	})

	return p.mintReplacement(in, me)
}

func (p *Processor) validateIncoming(t Ticket, issuer address.Address, c chain.Channel, minRequired, remaining *big.Int) error {
	if err := t.ValidateShape(); err != nil {
		return &ErrTicketValidation{Ticket: t, Reason: err.Error()}
	}
	issuerKey, ok := p.mapper.PacketKeyForAddress(issuer)
	if !ok {
		return &ErrTicketValidation{Ticket: t, Reason: "issuer packet key not registered"}
	}
	if !verifySignature(issuerKey, SigningPreimage(t, p.chain.DomainSeparator()), t.Signature) {
		return &ErrTicketValidation{Ticket: t, Reason: "invalid signature"}
	}
	if !c.ValidForTicket(t.Epoch) {
		return &ErrTicketValidation{Ticket: t, Reason: "channel not open or epoch mismatch"}
	}
	if t.Amount.Cmp(minRequired) < 0 {
		return &ErrTicketValidation{Ticket: t, Reason: "amount below minimum required for path position"}
	}
	if t.WinProb() < p.chain.MinWinProb() {
		return &ErrTicketValidation{Ticket: t, Reason: "win_prob below network minimum"}
	}
	if t.Amount.Cmp(remaining) > 0 {
		return &ErrTicketValidation{Ticket: t, Reason: "amount exceeds remaining channel balance"}
	}
	return nil
}

// mintReplacement implements the minting rules of spec 4.E step 7: a
// priced ticket scaled to path position for an interior hop, or a
// zero-hop ticket for the hop adjacent to the destination.
func (p *Processor) mintReplacement(in ForwardedInput, me address.Address) (Ticket, error) {
	if in.PathPos == 1 {
		return p.signTicket(Ticket{
			Amount:      big.NewInt(0),
			IndexOffset: 1,
			Issuer:      me,
		})
	}

	winProb := p.cfg.OutgoingWinProb
	if in.Ticket.WinProb() > winProb {
		winProb = in.Ticket.WinProb()
	}

	outChannel, ok := p.chain.Channel(me, in.NextHop)
	if !ok {
		return Ticket{}, &ErrChannelNotFound{Source: me, Destination: in.NextHop}
	}

	amount := new(big.Int).Mul(p.cfg.OutgoingPrice, big.NewInt(int64(in.PathPos-1)))
	amount = scaleByInverseProb(amount, winProb)

	if outChannel.Balance.Cmp(amount) < 0 {
		return Ticket{}, &ErrOutOfFunds{Destination: in.NextHop, Needed: amount.String()}
	}

	index, err := p.chain.NextOutgoingIndex(outChannel.ID)
	if err != nil {
		return Ticket{}, err
	}

	return p.signTicket(Ticket{
		ChannelID:      outChannel.ID,
		Amount:         amount,
		Index:          index,
		IndexOffset:    1,
		Epoch:          outChannel.Epoch,
		EncodedWinProb: EncodeWinProb(winProb),
		Issuer:         me,
	})
}

// scaleByInverseProb computes amount / winProb, rounding up so the
// expected value redeemed over many tickets never falls short of amount.
func scaleByInverseProb(amount *big.Int, winProb float64) *big.Int {
	if winProb <= 0 {
		return amount
	}
	scaled := new(big.Float).Quo(new(big.Float).SetInt(amount), big.NewFloat(winProb))
	result, acc := scaled.Int(nil)
	if acc == big.Below {
		result.Add(result, big.NewInt(1))
	}
	return result
}

func (p *Processor) signTicket(t Ticket) (Ticket, error) {
	return Sign(t, p.chain.DomainSeparator(), p.signer)
}

// MintOriginationTicket mints a ticket exactly as mintReplacement does for
// hop 1 of the chosen forward path, for use when this node itself
// originates the packet, and records the pending entry as WaitingAsSender
// under the encoder-returned ack_challenge.
func (p *Processor) MintOriginationTicket(destination address.Address, pathLen int, ackChallenge Challenge) (Ticket, error) {
	t, err := p.mintReplacement(ForwardedInput{NextHop: destination, PathPos: pathLen}, p.signer.Address())
	if err != nil {
		return Ticket{}, err
	}

	p.unack.Insert(ackChallenge, WaitingAsSender{})

	return t, nil
}

// FindTicketToAcknowledge resolves an incoming acknowledgement's half-key
// against the pending entry stored under its challenge (component E,
// `find_ticket_to_acknowledge`).
func (p *Processor) FindTicketToAcknowledge(c Challenge, ackHalfKey HalfKey) (ResolvedAcknowledgement, error) {
	pending, ok := p.unack.Remove(c)
	if !ok {
		return nil, &ErrUnacknowledgedTicketNotFound{Challenge: c}
	}

	switch v := pending.(type) {
	case WaitingAsSender:
		return Sending{Challenge: c}, nil

	case WaitingAsRelayer:
		issuerChannel, ok := p.chain.Channel(v.Issuer, p.signer.Address())
		if !ok {
			return nil, &ErrChannelNotFound{Source: v.Issuer, Destination: p.signer.Address()}
		}
		if issuerChannel.Epoch != v.Ticket.Epoch {
			return nil, &ErrInvalidState{Msg: "issuer channel epoch no longer matches pending ticket"}
		}

		combined := combineHalfKeys(v.HalfKey, ackHalfKey)

		if isWinning(v.Ticket, combined, p.signer.ChainKey(), p.chain.DomainSeparator()) {
			return RelayingWin{Ticket: v.Ticket, Response: combined}, nil
		}
		return RelayingLoss{ChannelID: v.Ticket.ChannelID}, nil

	default:
		return nil, &ErrInvalidState{Msg: "unrecognised pending acknowledgement variant"}
	}
}

func combineHalfKeys(a, b HalfKey) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// Sign computes t's signing preimage and returns t with Signature
// populated by signer. The processor uses this to mint outgoing tickets;
// callers simulating an already-signed incoming ticket (tests, or a
// Signer run as a separate service) use it the same way.
func Sign(t Ticket, domainSeparator [32]byte, signer Signer) (Ticket, error) {
	sig, err := signer.Sign(SigningPreimage(t, domainSeparator))
	if err != nil {
		return Ticket{}, err
	}
	t.Signature = sig
	return t, nil
}

// SigningPreimage serializes the fields of a ticket that are actually
// signed, mixed with the domain separator to prevent cross-chain replay.
func SigningPreimage(t Ticket, domainSeparator [32]byte) []byte {
	buf := make([]byte, 0, 32+12+6+4+3+7+32)
	buf = append(buf, t.ChannelID[:]...)
	buf = append(buf, leftPad(t.Amount.Bytes(), 12)...)
	buf = appendUint(buf, t.Index, 6)
	buf = appendUint(buf, uint64(t.IndexOffset), 4)
	buf = appendUint(buf, uint64(t.Epoch), 3)
	buf = appendUint(buf, t.EncodedWinProb, 7)
	buf = append(buf, domainSeparator[:]...)
	return buf
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

func appendUint(buf []byte, v uint64, width int) []byte {
	tmp := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		tmp[i] = byte(v)
		v >>= 8
	}
	return append(buf, tmp...)
}
