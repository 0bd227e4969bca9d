package udpip

import (
	"encoding/binary"
	"net/netip"

	"github.com/pkg/errors"
	"gvisor.dev/gvisor/pkg/tcpip/header"
)

const (
	IPv4HeaderSize = header.IPv4MinimumSize // 20, options unsupported
	UDPHeaderSize  = header.UDPMinimumSize  // 8
	HeaderSize     = IPv4HeaderSize + UDPHeaderSize

	Protocol = uint8(header.UDPProtocolNumber)
)

// IPv4Header keeps the fields the checksum and the filter use, every other
// field only survives inside Words.
type IPv4Header struct {
	Src      netip.Addr
	Dst      netip.Addr
	Checksum uint16
	Words    [IPv4HeaderSize / 2]uint16
}

func ParseIPv4Header(b []byte) (IPv4Header, error) {
	if len(b) < IPv4HeaderSize {
		return IPv4Header{}, errors.Errorf("ipv4 header too short %d", len(b))
	}
	ip := header.IPv4(b[:IPv4HeaderSize])

	var h = IPv4Header{
		Src:      netip.AddrFrom4(ip.SourceAddress().As4()),
		Dst:      netip.AddrFrom4(ip.DestinationAddress().As4()),
		Checksum: ip.Checksum(),
	}
	copy(h.Words[:], Words(ip))
	return h, nil
}

func (h *IPv4Header) ValidChecksum() bool {
	return Fold(h.Words[:]) == Valid
}

type UDPHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16 // header and data
	Checksum uint16
}

func ParseUDPHeader(b []byte) (UDPHeader, error) {
	if len(b) < UDPHeaderSize {
		return UDPHeader{}, errors.Errorf("udp header too short %d", len(b))
	}
	udp := header.UDP(b[:UDPHeaderSize])

	return UDPHeader{
		SrcPort:  udp.SourcePort(),
		DstPort:  udp.DestinationPort(),
		Length:   udp.Length(),
		Checksum: udp.Checksum(),
	}, nil
}

// DataLen returns the payload size the header declares, a length below the
// header size declares no payload.
func (h *UDPHeader) DataLen() int {
	return max(int(h.Length)-UDPHeaderSize, 0)
}

func (h *UDPHeader) words() []uint16 {
	return []uint16{h.SrcPort, h.DstPort, h.Length, h.Checksum}
}

// PseudoHeader is checksum input only, it never appears on the wire.
type PseudoHeader struct {
	Src      netip.Addr
	Dst      netip.Addr
	Protocol uint8
	Length   uint16
}

func NewPseudoHeader(ip *IPv4Header, udp *UDPHeader) PseudoHeader {
	return PseudoHeader{
		Src:      ip.Src,
		Dst:      ip.Dst,
		Protocol: Protocol,
		Length:   udp.Length,
	}
}

func (p *PseudoHeader) words() []uint16 {
	src, dst := p.Src.As4(), p.Dst.As4()
	return []uint16{
		binary.BigEndian.Uint16(src[0:]), binary.BigEndian.Uint16(src[2:]),
		binary.BigEndian.Uint16(dst[0:]), binary.BigEndian.Uint16(dst[2:]),
		uint16(p.Protocol), // zero byte, protocol byte
		p.Length,
	}
}
