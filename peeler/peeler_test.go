package peeler_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	onion "github.com/lysShub/data-onion"
	"github.com/lysShub/data-onion/peeler"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newPeeler(t *testing.T, mod func(*peeler.Config)) (*peeler.Peeler, *peeler.Config) {
	dir := t.TempDir()
	cfg := peeler.DefaultConfig()
	cfg.InputPath = filepath.Join(dir, "input.txt")
	cfg.OutDir = filepath.Join(dir, "out")
	cfg.LogPath = filepath.Join(dir, "peeler.log")
	if mod != nil {
		mod(cfg)
	}

	p, err := peeler.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	return p, cfg
}

func Test_FindPayload(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		text := "==[ Layer ]==\n\nprose\n\n" + peeler.PayloadMarker + "\n\n<~abc~>\n\n"
		b, err := peeler.FindPayload(text)
		require.NoError(t, err)
		require.Equal(t, peeler.PayloadMarker+"\n\n<~abc~>", string(b))
	})

	t.Run("first marker", func(t *testing.T) {
		text := peeler.PayloadMarker + "<~a~>" + peeler.PayloadMarker + "<~b~>"
		b, err := peeler.FindPayload(text)
		require.NoError(t, err)
		require.Equal(t, text, string(b))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := peeler.FindPayload("==[ Payload ]== is not long enough <~abc~>")
		require.True(t, errors.Is(err, onion.ErrMissingPayload), err)
	})
}

func Test_Peel(t *testing.T) {
	o := newOnion(t, 2)
	p, _ := newPeeler(t, nil)

	outs, err := p.Peel(context.Background(), o.input)
	require.NoError(t, err)
	require.Len(t, outs, len(o.pages))
	for i, exp := range o.pages {
		require.Equal(t, string(exp), string(outs[i]), "layer %d", i)
	}
	require.Equal(t, core, string(outs[len(outs)-1]))
}

func Test_Peel_Error(t *testing.T) {
	t.Run("missing delimiter", func(t *testing.T) {
		p, _ := newPeeler(t, nil)
		outs, err := p.Peel(context.Background(), []byte("plain text"))
		require.True(t, errors.Is(err, onion.ErrMissingDelimiter), err)
		require.Empty(t, outs)
	})

	t.Run("missing payload", func(t *testing.T) {
		p, _ := newPeeler(t, nil)
		outs, err := p.Peel(context.Background(), encode([]byte("==[ Layer 1/6 ]==\n\nno marker\n")))
		require.True(t, errors.Is(err, onion.ErrMissingPayload), err)
		require.Len(t, outs, 1)
		require.Contains(t, err.Error(), "layer 0")
	})

	t.Run("not text", func(t *testing.T) {
		p, _ := newPeeler(t, nil)
		_, err := p.Peel(context.Background(), encode([]byte{0xff, 0xfe, 0xfd}))
		require.True(t, errors.Is(err, onion.ErrNonUTF8Output), err)
	})

	t.Run("later layer", func(t *testing.T) {
		o := newOnion(t, 3)
		p, _ := newPeeler(t, nil)

		// layer 1 scrambled an odd byte count into the parity layer
		bad := page("==[ Layer 1/6 ]==", encode(scramble(page("==[ Layer 2/6 ]==", encode([]byte{0x00})))))
		outs, err := p.Peel(context.Background(), encode(bad))
		require.True(t, errors.Is(err, onion.ErrMisalignedInput), err)
		require.Len(t, outs, 2)

		outs, err = p.Peel(context.Background(), o.input)
		require.NoError(t, err)
		require.Len(t, outs, 6)
	})

	t.Run("canceled", func(t *testing.T) {
		o := newOnion(t, 4)
		p, _ := newPeeler(t, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		outs, err := p.Peel(ctx, o.input)
		require.True(t, errors.Is(err, context.Canceled), err)
		require.Empty(t, outs)
	})

	t.Run("filter mismatch", func(t *testing.T) {
		o := newOnion(t, 5)
		p, _ := newPeeler(t, func(c *peeler.Config) { c.Filter.DstPort++ })

		// other packets still decode as a layer, but it carries no marker
		outs, err := p.Peel(context.Background(), o.input)
		require.Error(t, err)
		require.Len(t, outs, 5)
		require.NotEqual(t, o.pages[4], outs[4])
	})
}

func Test_Run(t *testing.T) {
	o := newOnion(t, 6)
	p, cfg := newPeeler(t, func(c *peeler.Config) {
		c.PcapPath = filepath.Join(filepath.Dir(c.OutDir), "layer4.pcap")
	})
	require.NoError(t, os.WriteFile(cfg.InputPath, o.input, 0o644))

	require.NoError(t, p.Run(context.Background()))

	for i, exp := range o.pages {
		b, err := os.ReadFile(filepath.Join(cfg.OutDir, fmt.Sprintf("layer%d.txt", i+1)))
		require.NoError(t, err)
		require.Equal(t, string(exp), string(b))
	}

	t.Run("pcap", func(t *testing.T) {
		fh, err := os.Open(cfg.PcapPath)
		require.NoError(t, err)
		defer fh.Close()

		r, err := pcapgo.NewReader(fh)
		require.NoError(t, err)
		require.Equal(t, layers.LinkTypeRaw, r.LinkType())

		var n int
		for {
			_, _, err := r.ReadPacketData()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			n++
		}
		require.Equal(t, o.pkts, n)
	})

	t.Run("log", func(t *testing.T) {
		b, err := os.ReadFile(cfg.LogPath)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(b)), "\n")
		require.Len(t, lines, 6+2) // every layer, packets, pcap
		require.Contains(t, string(b), `"name":"network traffic"`)
	})
}

func Test_Run_Error(t *testing.T) {
	t.Run("no input", func(t *testing.T) {
		p, _ := newPeeler(t, nil)
		err := p.Run(context.Background())
		require.True(t, errors.Is(err, os.ErrNotExist), err)
	})

	t.Run("partial", func(t *testing.T) {
		p, cfg := newPeeler(t, nil)
		input := encode([]byte("==[ Layer 1/6 ]==\n\nno marker\n"))
		require.NoError(t, os.WriteFile(cfg.InputPath, input, 0o644))

		err := p.Run(context.Background())
		require.True(t, errors.Is(err, onion.ErrMissingPayload), err)

		b, err := os.ReadFile(filepath.Join(cfg.OutDir, "layer1.txt"))
		require.NoError(t, err)
		require.Equal(t, "==[ Layer 1/6 ]==\n\nno marker\n", string(b))

		_, err = os.Stat(filepath.Join(cfg.OutDir, "layer2.txt"))
		require.True(t, errors.Is(err, os.ErrNotExist), err)

		log, err := os.ReadFile(cfg.LogPath)
		require.NoError(t, err)
		require.Contains(t, string(log), `"level":"ERROR"`)
	})
}
