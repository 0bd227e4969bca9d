package udpip

import (
	"net/netip"

	"github.com/pkg/errors"
	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/checksum"
	"gvisor.dev/gvisor/pkg/tcpip/header"
)

// Fields describe a packet for Build.
type Fields struct {
	Src     netip.AddrPort
	Dst     netip.AddrPort
	ID      uint16
	TTL     uint8 // opt, default 64
	Payload []byte
}

// Build encodes f as an option-less IPv4/UDP packet with both checksums
// filled in.
func Build(f *Fields) ([]byte, error) {
	if !f.Src.Addr().Is4() || !f.Dst.Addr().Is4() {
		return nil, errors.Errorf("only support ipv4 %s -> %s", f.Src, f.Dst)
	}
	n := HeaderSize + len(f.Payload)
	if n > 0xffff {
		return nil, errors.Errorf("payload too large %d", len(f.Payload))
	}
	ttl := f.TTL
	if ttl == 0 {
		ttl = 64
	}
	src := tcpip.AddrFrom4(f.Src.Addr().As4())
	dst := tcpip.AddrFrom4(f.Dst.Addr().As4())

	b := make([]byte, n)
	copy(b[HeaderSize:], f.Payload)

	ip := header.IPv4(b)
	ip.Encode(&header.IPv4Fields{
		TotalLength: uint16(n),
		ID:          f.ID,
		TTL:         ttl,
		Protocol:    Protocol,
		SrcAddr:     src,
		DstAddr:     dst,
	})
	ip.SetChecksum(^ip.CalculateChecksum())

	udp := header.UDP(b[IPv4HeaderSize:])
	udp.Encode(&header.UDPFields{
		SrcPort: f.Src.Port(),
		DstPort: f.Dst.Port(),
		Length:  uint16(n - IPv4HeaderSize),
	})
	psum := header.PseudoHeaderChecksum(header.UDPProtocolNumber, src, dst, udp.Length())
	udp.SetChecksum(^checksum.Checksum(udp, psum))
	return b, nil
}
