package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/lysShub/data-onion/peeler"
	"github.com/lysShub/rawsock/test"
	"github.com/stretchr/testify/require"
)

var (
	configPath = flag.String("config", "", "toml config file")
	inputPath  = flag.String("in", "input.txt", "outermost layer file")
	outDir     = flag.String("out", "out", "directory of the peeled layers")
	logPath    = flag.String("log", "", "log file, default stdout")
	pcapPath   = flag.String("pcap", "", "write the layer 4 packets as pcap")
)

func main() {
	flag.Parse()

	var t = test.T()
	config := peeler.DefaultConfig()
	if *configPath != "" {
		var err error
		config, err = peeler.LoadConfig(*configPath)
		require.NoError(t, err)
	}

	// flags given explicitly override the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			config.InputPath = *inputPath
		case "out":
			config.OutDir = *outDir
		case "log":
			config.LogPath = *logPath
		case "pcap":
			config.PcapPath = *pcapPath
		}
	})

	p, err := peeler.New(config)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := p.Run(ctx); err != nil {
		p.Close()
		cancel()
		os.Exit(1)
	}
}
