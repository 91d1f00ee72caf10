package api

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pelletier/go-toml"
)

type Configuration struct {
	Ledger struct {
		Admin       string `toml:"admin"`
		Marketplace string `toml:"marketplace"`
	} `toml:"ledger"`
	API struct {
		Listen string `toml:"listen"`
	} `toml:"api"`
	Metadata struct {
		Gateway string `toml:"gateway"`
		Timeout int64  `toml:"timeout"`
	} `toml:"metadata"`
}

func Setup(path string) (*Configuration, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Configuration
	err = toml.Unmarshal(f, &conf)
	if err != nil {
		return nil, err
	}
	if conf.Ledger.Admin == "" || !common.IsHexAddress(conf.Ledger.Admin) {
		return nil, fmt.Errorf("invalid ledger admin %s", conf.Ledger.Admin)
	}
	if conf.Ledger.Marketplace != "" && !common.IsHexAddress(conf.Ledger.Marketplace) {
		return nil, fmt.Errorf("invalid ledger marketplace %s", conf.Ledger.Marketplace)
	}
	if conf.API.Listen == "" {
		conf.API.Listen = ":7080"
	}
	if conf.Metadata.Gateway == "" {
		conf.Metadata.Gateway = "https://ipfs.io"
	}
	if conf.Metadata.Timeout <= 0 {
		conf.Metadata.Timeout = 10
	}
	return &conf, nil
}
