package peeler_test

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/lysShub/data-onion/layers"
	"github.com/lysShub/data-onion/peeler"
	"github.com/stretchr/testify/require"
)

func Test_LoadConfig(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		cfg, err := peeler.LoadConfig("testdata/peeler.toml")
		require.NoError(t, err)

		require.Equal(t, "onion.txt", cfg.InputPath)
		require.Equal(t, "peeled", cfg.OutDir)
		require.Equal(t, "layer4.pcap", cfg.PcapPath)
		require.Equal(t, "", cfg.LogPath)
		require.Equal(t, layers.KnownPrefix, cfg.KnownPrefix)
		require.Equal(t, netip.MustParseAddr("192.168.7.1"), cfg.Filter.Src)
		require.Equal(t, netip.MustParseAddr("192.168.7.2"), cfg.Filter.Dst)
		require.Equal(t, uint16(9000), cfg.Filter.DstPort)
	})

	write := func(t *testing.T, s string) string {
		path := filepath.Join(t.TempDir(), "peeler.toml")
		require.NoError(t, os.WriteFile(path, []byte(s), 0o644))
		return path
	}

	t.Run("defaults", func(t *testing.T) {
		cfg, err := peeler.LoadConfig(write(t, "[filter]\ndst_port = 1\n"))
		require.NoError(t, err)

		exp := peeler.DefaultConfig()
		exp.Filter.DstPort = 1
		require.Equal(t, exp, cfg)
	})

	for _, e := range []struct {
		name string
		toml string
	}{
		{"unknown key", "inptu = \"a.txt\"\n"},
		{"invalid address", "[filter]\nsrc = \"10.1.1\"\n"},
		{"ipv6 address", "[filter]\ndst = \"::1\"\n"},
		{"port overflow", "[filter]\ndst_port = 70000\n"},
		{"syntax", "input = \n"},
	} {
		t.Run(e.name, func(t *testing.T) {
			_, err := peeler.LoadConfig(write(t, e.toml))
			require.Error(t, err)
		})
	}

	t.Run("not exist", func(t *testing.T) {
		_, err := peeler.LoadConfig(filepath.Join(t.TempDir(), "none.toml"))
		require.Error(t, err)
	})
}

func Test_New(t *testing.T) {
	cfg := peeler.DefaultConfig()
	cfg.Filter.Src = netip.Addr{}
	_, err := peeler.New(cfg)
	require.Error(t, err)

	cfg = peeler.DefaultConfig()
	cfg.Filter.Dst = netip.MustParseAddr("::1")
	_, err = peeler.New(cfg)
	require.Error(t, err)

	cfg = peeler.DefaultConfig()
	cfg.OutDir, cfg.KnownPrefix = "", ""
	cfg.LogPath = filepath.Join(t.TempDir(), "peeler.log")
	p, err := peeler.New(cfg)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.Equal(t, "out", cfg.OutDir)
	require.Equal(t, layers.KnownPrefix, cfg.KnownPrefix)
}
