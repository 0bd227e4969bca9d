// Package layers holds the transform of every onion layer. Each one decodes
// its Ascii85 envelope first.
package layers

import (
	"github.com/lysShub/data-onion/ascii85"
	"github.com/lysShub/data-onion/parity"
	"github.com/lysShub/data-onion/udpip"
)

type Func func(envelope []byte) ([]byte, error)

type Layer struct {
	Index int
	Name  string
	Func  Func
}

type Options struct {
	Filter udpip.Filter

	// KnownPrefix is the plaintext start of layer 3, default KnownPrefix
	KnownPrefix []byte

	// opt, called with every packet parsed by layer 4 and the accepted ones
	Packets func(parsed, accepted []*udpip.Packet)
}

// All returns the layers in peeling order.
func All(opts *Options) []Layer {
	return []Layer{
		{Index: 0, Name: "ascii85", Func: Layer0},
		{Index: 1, Name: "bitwise operations", Func: Layer1},
		{Index: 2, Name: "parity bit", Func: Layer2},
		{Index: 3, Name: "xor encryption", Func: opts.layer3},
		{Index: 4, Name: "network traffic", Func: opts.layer4},
		{Index: 5, Name: "advanced encryption standard", Func: Layer5},
	}
}

func Layer0(b []byte) ([]byte, error) {
	return ascii85.Decode(b)
}

func Layer1(b []byte) ([]byte, error) {
	d, err := ascii85.Decode(b)
	if err != nil {
		return nil, err
	}
	return Unscramble(d), nil
}

func Layer2(b []byte) ([]byte, error) {
	d, err := ascii85.Decode(b)
	if err != nil {
		return nil, err
	}
	return parity.Combine(d)
}

// Layer3 uses the default known prefix.
func Layer3(b []byte) ([]byte, error) {
	return (&Options{}).layer3(b)
}

func (o *Options) layer3(b []byte) ([]byte, error) {
	d, err := ascii85.Decode(b)
	if err != nil {
		return nil, err
	}

	known := o.KnownPrefix
	if len(known) == 0 {
		known = []byte(KnownPrefix)
	}
	key, err := RecoverKey(d, known, KeySize)
	if err != nil {
		return nil, err
	}
	return Xor(d, key), nil
}

// Layer4 reconstructs the payload of the packets f accepts.
func Layer4(f udpip.Filter) Func {
	return (&Options{Filter: f}).layer4
}

func (o *Options) layer4(b []byte) ([]byte, error) {
	d, err := ascii85.Decode(b)
	if err != nil {
		return nil, err
	}
	if err := o.Filter.Valid(); err != nil {
		return nil, err
	}

	pkts, err := udpip.Parse(d)
	if err != nil {
		return nil, err
	}
	accepted := udpip.Accepted(pkts, o.Filter)
	if o.Packets != nil {
		o.Packets(pkts, accepted)
	}
	return udpip.Concat(accepted), nil
}

func Layer5(b []byte) ([]byte, error) {
	d, err := ascii85.Decode(b)
	if err != nil {
		return nil, err
	}
	return Decrypt(d)
}
