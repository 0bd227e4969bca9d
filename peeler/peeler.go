// Package peeler feeds the output of every layer, after locating its
// payload, into the next one.
package peeler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	onion "github.com/lysShub/data-onion"
	"github.com/lysShub/data-onion/layers"
	"github.com/lysShub/data-onion/udpip"
	"github.com/lysShub/netkit/errorx"
	"github.com/pkg/errors"
)

// PayloadMarker precedes the envelope of the next layer.
const PayloadMarker = "==[ Payload ]==============================================="

// FindPayload returns text from the payload marker on, trimmed.
func FindPayload(text string) ([]byte, error) {
	i := strings.Index(text, PayloadMarker)
	if i < 0 {
		return nil, errors.WithStack(onion.Errorf(onion.MissingPayload, "no %q", PayloadMarker))
	}
	return []byte(strings.TrimSpace(text[i:])), nil
}

type Peeler struct {
	config *Config
}

func New(config *Config) (*Peeler, error) {
	config, err := config.init()
	if err != nil {
		return nil, err
	}
	return &Peeler{config: config}, nil
}

func (p *Peeler) Close() error {
	if p.config.logFile != nil {
		return errors.WithStack(p.config.logFile.Close())
	}
	return nil
}

// Run peels the configured input file, writing the output of layer i to
// OutDir/layer<i+1>.txt as soon as it is known.
func (p *Peeler) Run(ctx context.Context) error {
	input, err := os.ReadFile(p.config.InputPath)
	if err != nil {
		return p.fail(errors.WithStack(err))
	}
	if err := os.MkdirAll(p.config.OutDir, 0o755); err != nil {
		return p.fail(errors.WithStack(err))
	}

	_, err = p.peel(ctx, input, func(l layers.Layer, out []byte) error {
		name := filepath.Join(p.config.OutDir, fmt.Sprintf("layer%d.txt", l.Index+1))
		return errors.WithStack(os.WriteFile(name, out, 0o644))
	})
	return err
}

// Peel runs every layer over input in memory and returns their outputs.
func (p *Peeler) Peel(ctx context.Context, input []byte) ([][]byte, error) {
	return p.peel(ctx, input, nil)
}

func (p *Peeler) peel(ctx context.Context, input []byte, emit func(layers.Layer, []byte) error) ([][]byte, error) {
	var pkts []*udpip.Packet
	ls := layers.All(&layers.Options{
		Filter:      p.config.Filter,
		KnownPrefix: []byte(p.config.KnownPrefix),
		Packets: func(parsed, accepted []*udpip.Packet) {
			pkts = parsed
			p.config.logger.Info("packets",
				slog.Int("parsed", len(parsed)),
				slog.Int("accepted", len(accepted)),
				slog.Int("rejected", len(parsed)-len(accepted)),
				slog.String("filter", p.config.Filter.String()),
			)
		},
	})

	var outs = make([][]byte, 0, len(ls))
	for i, l := range ls {
		if err := ctx.Err(); err != nil {
			return outs, p.fail(errors.WithStack(err))
		}

		out, err := l.Func(input)
		if err != nil {
			return outs, p.fail(errors.WithMessagef(err, "layer %d %s", l.Index, l.Name))
		}
		p.config.logger.Info("peeled",
			slog.Int("layer", l.Index),
			slog.String("name", l.Name),
			slog.Int("in", len(input)),
			slog.Int("out", len(out)),
		)
		outs = append(outs, out)

		if emit != nil {
			if err := emit(l, out); err != nil {
				return outs, p.fail(err)
			}
		}
		if pkts != nil && p.config.PcapPath != "" {
			if err := p.dump(pkts); err != nil {
				return outs, p.fail(err)
			}
			pkts = nil
		}

		if i == len(ls)-1 {
			break
		}
		if !utf8.Valid(out) {
			return outs, p.fail(errors.WithStack(onion.Errorf(onion.NonUTF8Output, "layer %d %s", l.Index, l.Name)))
		}
		if input, err = FindPayload(string(out)); err != nil {
			return outs, p.fail(errors.WithMessagef(err, "layer %d %s", l.Index, l.Name))
		}
	}
	return outs, nil
}

func (p *Peeler) dump(pkts []*udpip.Packet) error {
	fh, err := os.Create(p.config.PcapPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer fh.Close()

	if err := udpip.WritePcap(fh, pkts); err != nil {
		return err
	}
	p.config.logger.Info("pcap", slog.String("path", p.config.PcapPath), slog.Int("packets", len(pkts)))
	return errors.WithStack(fh.Close())
}

func (p *Peeler) fail(err error) error {
	p.config.logger.Error(err.Error(), errorx.Trace(err))
	return err
}
