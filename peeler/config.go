package peeler

import (
	"io"
	"log/slog"
	"net/netip"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lysShub/data-onion/layers"
	"github.com/lysShub/data-onion/udpip"
	"github.com/pkg/errors"
)

type Config struct {
	InputPath string
	OutDir    string

	// opt, write every layer 4 packet as a raw ipv4 capture
	PcapPath string

	Filter      udpip.Filter
	KnownPrefix string

	LogPath string
	logger  *slog.Logger
	logFile io.Closer
}

func DefaultConfig() *Config {
	return &Config{
		InputPath: "input.txt",
		OutDir:    "out",
		Filter: udpip.Filter{
			Src:     netip.AddrFrom4([4]byte{10, 1, 1, 10}),
			Dst:     netip.AddrFrom4([4]byte{10, 1, 1, 200}),
			DstPort: 42069,
		},
		KnownPrefix: layers.KnownPrefix,
	}
}

func (c *Config) init() (*Config, error) {
	if err := c.Filter.Valid(); err != nil {
		return nil, err
	}
	if c.OutDir == "" {
		c.OutDir = "out"
	}
	if c.KnownPrefix == "" {
		c.KnownPrefix = layers.KnownPrefix
	}

	var fh *os.File
	if c.LogPath == "" {
		fh = os.Stdout
	} else {
		var err error
		fh, err = os.OpenFile(c.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o666)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		c.logFile = fh
	}
	c.logger = slog.New(slog.NewJSONHandler(fh, nil))
	return c, nil
}

type fileConfig struct {
	Input       string `toml:"input"`
	OutDir      string `toml:"out_dir"`
	LogPath     string `toml:"log_path"`
	PcapPath    string `toml:"pcap_path"`
	KnownPrefix string `toml:"known_prefix"`
	Filter      struct {
		Src     string `toml:"src"`
		Dst     string `toml:"dst"`
		DstPort uint16 `toml:"dst_port"`
	} `toml:"filter"`
}

// LoadConfig reads a toml file over DefaultConfig, keys absent from the
// file keep their default.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		return nil, errors.Errorf("unknown config key %s", keys[0])
	}

	if meta.IsDefined("input") {
		cfg.InputPath = strings.TrimSpace(raw.Input)
	}
	if meta.IsDefined("out_dir") {
		cfg.OutDir = strings.TrimSpace(raw.OutDir)
	}
	if meta.IsDefined("log_path") {
		cfg.LogPath = strings.TrimSpace(raw.LogPath)
	}
	if meta.IsDefined("pcap_path") {
		cfg.PcapPath = strings.TrimSpace(raw.PcapPath)
	}
	if meta.IsDefined("known_prefix") {
		cfg.KnownPrefix = raw.KnownPrefix
	}

	if meta.IsDefined("filter", "src") {
		if cfg.Filter.Src, err = parseAddr(raw.Filter.Src); err != nil {
			return nil, errors.WithMessage(err, "filter.src")
		}
	}
	if meta.IsDefined("filter", "dst") {
		if cfg.Filter.Dst, err = parseAddr(raw.Filter.Dst); err != nil {
			return nil, errors.WithMessage(err, "filter.dst")
		}
	}
	if meta.IsDefined("filter", "dst_port") {
		cfg.Filter.DstPort = raw.Filter.DstPort
	}
	return cfg, nil
}

func parseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, errors.WithStack(err)
	}
	if !addr.Is4() {
		return netip.Addr{}, errors.Errorf("%s is not ipv4", addr)
	}
	return addr, nil
}
