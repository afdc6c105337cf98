package payload

import "github.com/hoprnet/hopr-relay-core/address"

// encodeCallWithTrailingString ABI-encodes a call whose only dynamic
// parameter is a single trailing string, shared by announce's Basic and
// Safe variants regardless of how many leading static words precede it.
func encodeCallWithTrailingString(sig string, leading []word, s string) []byte {
	offset := uint64((len(leading) + 1) * 32)
	head := concatWords(append(append([]word{}, leading...), encodeUint64(offset))...)
	return append(append(selector(sig)[:], head...), encodeDynamicString(s)...)
}

// encodeAnnounceCall builds the calldata for announce()/announceSafe() or,
// when a.KeyBinding is set, bindKeysAnnounce()/bindKeysAnnounceSafe(). A
// non-nil selfAddress selects the Safe-suffixed signature and prepends it
// as the leading parameter.
func encodeAnnounceCall(a AnnouncementData, selfAddress *address.Address) []byte {
	var leading []word
	if selfAddress != nil {
		leading = append(leading, encodeAddress(*selfAddress))
	}

	if a.KeyBinding == nil {
		sig := "announce(string)"
		if selfAddress != nil {
			sig = "announceSafe(address,string)"
		}
		return encodeCallWithTrailingString(sig, leading, a.Multiaddress)
	}

	var sig0, sig1, pub word
	copy(sig0[:], a.KeyBinding.Signature[:32])
	copy(sig1[:], a.KeyBinding.Signature[32:64])
	if pk := a.KeyBinding.PacketKey.Bytes(); len(pk) == 33 {
		copy(pub[:], pk[1:33])
	}

	leading = append(leading, sig0, sig1, pub)
	sig := "bindKeysAnnounce(bytes32,bytes32,bytes32,string)"
	if selfAddress != nil {
		sig = "bindKeysAnnounceSafe(address,bytes32,bytes32,bytes32,string)"
	}
	return encodeCallWithTrailingString(sig, leading, a.Multiaddress)
}

// encodeRedeemTicketCall builds the calldata for redeemTicket()/
// redeemTicketSafe(): the TicketData tuple, the compact signature, the
// proof-of-relay response, and the eight VRF field elements, all static
// words so no dynamic tail is needed.
func encodeRedeemTicketCall(rt RedeemableTicket, selfAddress *address.Address) []byte {
	sig := "redeemTicket((bytes32,uint96,uint48,uint32,uint24,uint56),(bytes32,bytes32),uint256,(uint256,uint256,uint256,uint256,uint256,uint256,uint256,uint256))"
	if selfAddress != nil {
		sig = "redeemTicketSafe(address,(bytes32,uint96,uint48,uint32,uint24,uint56),(bytes32,bytes32),uint256,(uint256,uint256,uint256,uint256,uint256,uint256,uint256,uint256))"
	}

	out := selector(sig)[:]
	if selfAddress != nil {
		out = append(out, encodeAddress(*selfAddress)[:]...)
	}
	out = append(out, encodeTicketData(rt.Ticket)...)
	out = append(out, encodeCompactSignature(rt.Ticket.Signature)...)
	out = append(out, encodeBytes32(rt.Response)[:]...)
	out = append(out, encodeVRFParameters(rt.Witness)...)
	return out
}
