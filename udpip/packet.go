package udpip

import (
	"slices"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/checksum"
	"gvisor.dev/gvisor/pkg/tcpip/header"
)

// Packet is one IPv4/UDP datagram reconstructed from a stream, immutable
// once returned by Parse.
type Packet struct {
	IP     IPv4Header
	UDP    UDPHeader
	Pseudo PseudoHeader

	raw []byte // headers and payload as read
}

// emptyPacket is a packet whose payload is not attached yet.
type emptyPacket struct {
	p   *Packet
	hdr []byte
}

func parseHeaders(b []byte) (emptyPacket, error) {
	ip, err := ParseIPv4Header(b)
	if err != nil {
		return emptyPacket{}, err
	}
	udp, err := ParseUDPHeader(b[IPv4HeaderSize:])
	if err != nil {
		return emptyPacket{}, err
	}

	return emptyPacket{
		p:   &Packet{IP: ip, UDP: udp, Pseudo: NewPseudoHeader(&ip, &udp)},
		hdr: b[:HeaderSize],
	}, nil
}

func (e emptyPacket) dataLen() int { return e.p.UDP.DataLen() }

func (e emptyPacket) attach(data []byte) *Packet {
	e.p.raw = append(slices.Clone(e.hdr), data...)
	return e.p
}

// Payload returns the data following the UDP header.
func (p *Packet) Payload() []byte { return p.raw[HeaderSize:] }

// Bytes returns the packet as read from the stream.
func (p *Packet) Bytes() []byte { return p.raw }

func (p *Packet) ValidIPChecksum() bool {
	return p.IP.ValidChecksum()
}

// ValidUDPChecksum folds pseudo header, UDP header with its checksum field
// and the zero padded payload.
func (p *Packet) ValidUDPChecksum() bool {
	var ws = make([]uint16, 0, 10+(len(p.Payload())+1)/2)
	ws = append(ws, p.Pseudo.words()...)
	ws = append(ws, p.UDP.words()...)
	ws = append(ws, Words(p.Payload())...)
	return Fold(ws) == Valid
}

func (p *Packet) ValidChecksums() bool {
	ip := p.ValidIPChecksum()
	udp := p.ValidUDPChecksum()
	return ip && udp
}

// recheck validates both checksums with gvisor, used as a self check in
// debug builds.
func (p *Packet) recheck() bool {
	ip := header.IPv4(p.raw[:IPv4HeaderSize])
	if checksum.Checksum(ip, 0) != 0xffff {
		return false
	}

	psum := header.PseudoHeaderChecksum(
		header.UDPProtocolNumber,
		tcpip.AddrFrom4(p.Pseudo.Src.As4()),
		tcpip.AddrFrom4(p.Pseudo.Dst.As4()),
		p.Pseudo.Length,
	)
	return checksum.Checksum(p.raw[IPv4HeaderSize:], psum) == 0xffff
}
