package udpip

import (
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
)

const snaplen = 0x40000

// WritePcap writes pkts as a raw IPv4 capture. Timestamps are synthetic, one
// millisecond apart from the unix epoch, so packet order is kept.
func WritePcap(w io.Writer, pkts []*Packet) error {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snaplen, layers.LinkTypeRaw); err != nil {
		return errors.WithStack(err)
	}

	for i, p := range pkts {
		b := p.Bytes()
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Unix(0, 0).Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(b),
			Length:        len(b),
		}
		if err := pw.WritePacket(ci, b); err != nil {
			return errors.Wrapf(err, "packet %d", i)
		}
	}
	return nil
}
