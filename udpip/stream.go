package udpip

import (
	"fmt"
	"net/netip"

	onion "github.com/lysShub/data-onion"
	"github.com/lysShub/netkit/debug"
	"github.com/lysShub/netkit/packet"
	"github.com/lysShub/rawsock/test"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// Filter selects the packets whose payloads are kept.
type Filter struct {
	Src     netip.Addr
	Dst     netip.Addr
	DstPort uint16
}

func (f Filter) String() string {
	return fmt.Sprintf("%s -> %s", f.Src, netip.AddrPortFrom(f.Dst, f.DstPort))
}

func (f Filter) Valid() error {
	if !f.Src.Is4() {
		return errors.Errorf("filter source %s", f.Src)
	}
	if !f.Dst.Is4() {
		return errors.Errorf("filter destination %s", f.Dst)
	}
	return nil
}

// Match reports whether p has valid checksums and the filter's addressing.
func (f Filter) Match(p *Packet) bool {
	return p.ValidChecksums() &&
		p.IP.Src == f.Src &&
		p.IP.Dst == f.Dst &&
		p.UDP.DstPort == f.DstPort
}

// Parse walks b as back to back packets from offset 0. A stream too short
// for the first header fails with TruncatedHeader, any later shortfall ends
// the walk and returns the packets read so far.
func Parse(b []byte) ([]*Packet, error) {
	var (
		pkt  = packet.From(b)
		pkts []*Packet
	)

	for pkt.Data() > 0 {
		if pkt.Data() < HeaderSize {
			if len(pkts) == 0 {
				return nil, errors.WithStack(onion.Errorf(
					onion.TruncatedHeader, "stream of %d bytes, require %d", pkt.Data(), HeaderSize,
				))
			}
			break
		}

		e, err := parseHeaders(pkt.Bytes())
		if err != nil {
			return nil, err
		}
		n := HeaderSize + e.dataLen()
		if pkt.Data() < n {
			break
		}

		pkts = append(pkts, e.attach(pkt.Bytes()[HeaderSize:n]))
		pkt.DetachN(n)
	}
	return pkts, nil
}

// Accepted returns the packets f matches, in stream order.
func Accepted(pkts []*Packet, f Filter) []*Packet {
	var as []*Packet
	for _, p := range pkts {
		if f.Match(p) {
			if debug.Debug() {
				require.True(test.T(), p.recheck())
			}
			as = append(as, p)
		}
	}
	return as
}

// Reconstruct parses b and concatenates the payloads of the packets f
// accepts. Packets failing a checksum are skipped, never reported.
func Reconstruct(b []byte, f Filter) ([]byte, error) {
	pkts, err := Parse(b)
	if err != nil {
		return nil, err
	}
	return Concat(Accepted(pkts, f)), nil
}

func Concat(pkts []*Packet) []byte {
	n := 0
	for _, p := range pkts {
		n += len(p.Payload())
	}
	out := make([]byte, 0, n)
	for _, p := range pkts {
		out = append(out, p.Payload()...)
	}
	return out
}
