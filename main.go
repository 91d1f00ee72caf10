package main

import (
	"context"
	"flag"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nfmint/nfm/api"
	"github.com/nfmint/nfm/holdings"
	"github.com/nfmint/nfm/ledger"
	"github.com/nfmint/nfm/store"
)

func main() {
	ctx := context.Background()

	bp := flag.String("d", "~/.nfm/data", "database directory path")
	cp := flag.String("c", "~/.nfm/config.toml", "configuration file path")
	flag.Parse()

	if strings.HasPrefix(*cp, "~/") {
		usr, _ := user.Current()
		*cp = filepath.Join(usr.HomeDir, (*cp)[2:])
	}
	conf, err := api.Setup(*cp)
	if err != nil {
		panic(err)
	}

	if strings.HasPrefix(*bp, "~/") {
		usr, _ := user.Current()
		*bp = filepath.Join(usr.HomeDir, (*bp)[2:])
	}
	db, err := store.OpenBadger(ctx, *bp)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	l, err := ledger.New(db, common.HexToAddress(conf.Ledger.Admin))
	if err != nil {
		panic(err)
	}
	if mp := conf.Ledger.Marketplace; mp != "" {
		addr := common.HexToAddress(mp)
		if l.Marketplace() != addr {
			err = l.SetMarketplace(l.Admin(), addr)
			if err != nil {
				panic(err)
			}
		}
	}

	fetcher := holdings.NewMetadataFetcher(conf.Metadata.Gateway, time.Duration(conf.Metadata.Timeout)*time.Second)
	rec := holdings.NewReconstructor(l, fetcher)

	srv := api.NewServer(l, rec, db, conf)
	err = srv.Run(ctx)
	if err != nil {
		panic(err)
	}
}
