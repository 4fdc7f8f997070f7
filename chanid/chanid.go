// Package chanid defines ChannelID, the packed network destination
// address shared by the instruction decoder, the channel map table,
// and the local network. It is kept as its own leaf package so that
// isa, network, and core can all depend on it without a cycle.
package chanid

// ChannelID identifies a destination component and channel on the
// chip: a tile, a component position within that tile (a core or
// memory bank index), and a channel number at that component. If
// Multicast is set, Position is instead a bitmask over core positions
// on the local tile (spec.md §3, "ChannelID").
type ChannelID struct {
	Tile      uint16
	Position  uint8
	Channel   uint8
	Multicast bool
}

// Encode packs a ChannelID into a single 32-bit value, for storage in
// a register or transmission as part of a CMT write. Layout:
//
//	[31]    multicast bit
//	[30:16] tile (15 bits)
//	[15:8]  position / bitmask (8 bits)
//	[7:0]   channel (8 bits)
func (c ChannelID) Encode() uint32 {
	var v uint32
	if c.Multicast {
		v |= 1 << 31
	}
	v |= (uint32(c.Tile) & 0x7FFF) << 16
	v |= uint32(c.Position) << 8
	v |= uint32(c.Channel)
	return v
}

// Decode unpacks a 32-bit value produced by Encode back into a
// ChannelID. Round-trips for every value produced by Encode (spec.md
// §8: "Encode(ChannelID(t,p,c)) -> decode back gives (t,p,c)").
func Decode(v uint32) ChannelID {
	return ChannelID{
		Multicast: v&(1<<31) != 0,
		Tile:      uint16((v >> 16) & 0x7FFF),
		Position:  uint8((v >> 8) & 0xFF),
		Channel:   uint8(v & 0xFF),
	}
}

// Cores returns the set of local core positions selected by a
// multicast ChannelID's bitmask. If c is not multicast, it returns a
// single-element slice containing Position.
func (c ChannelID) Cores(maxCores int) []uint8 {
	if !c.Multicast {
		return []uint8{c.Position}
	}
	var out []uint8
	for i := 0; i < maxCores && i < 8; i++ {
		if c.Position&(1<<uint(i)) != 0 {
			out = append(out, uint8(i))
		}
	}
	return out
}

// IsNull reports whether c is the zero-value "no destination" address.
func (c ChannelID) IsNull() bool {
	return c == ChannelID{}
}
