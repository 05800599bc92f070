package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"os"
	"os/signal"
	"syscall"

	"github.com/pyropy/cloudstore/core/blockstore"
	"github.com/pyropy/cloudstore/core/cloud"
	"github.com/pyropy/cloudstore/core/ledger"
	"github.com/pyropy/cloudstore/core/upload"
	"github.com/pyropy/cloudstore/lib/logger"
	"github.com/pyropy/cloudstore/lib/snowflake"
)

var log, _ = logger.New("cloudstore")

func main() {
	if err := run(); err != nil {
		log.Fatalw("startup", "ERROR", err)
	}
}

func run() error {
	cfg, err := cloud.GetConfig()
	if err != nil {
		log.Errorw("startup", "error", "config error")
		return err
	}

	ldg, err := ledger.Open(cfg.DB.DSN)
	if err != nil {
		log.Errorw("startup", "error", "ledger db unreachable")
		return err
	}

	err = ldg.Migrate(context.Background())
	if err != nil {
		log.Errorw("startup", "error", "ledger migration failed")
		return err
	}

	blocks, err := newBlockStore(cfg)
	if err != nil {
		log.Errorw("startup", "error", "block store init failed")
		return err
	}

	sessions, err := upload.NewLevelDBSessionStore(cfg.Sessions.Path, cfg.Sessions.TTL)
	if err != nil {
		log.Errorw("startup", "error", "session store init failed")
		return err
	}

	ids, err := snowflake.New(cfg.Snowflake.WorkerID, cfg.Snowflake.DatacenterID)
	if err != nil {
		log.Errorw("startup", "error", "snowflake init failed")
		return err
	}

	cloudSvc := cloud.New(log, blocks, ldg, ids, cfg.Blocks.MaxSize)
	uploads := upload.NewCoordinator(log, sessions, blocks, ldg, ids)
	api := NewAPI(cloudSvc, uploads)

	rpc.Register(api)
	rpc.HandleHTTP()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		log.Errorw("startup", "error", "net listen failed")
		return err
	}

	listenAddr := l.Addr().String()

	log.Infow("startup", "status", "cloudstore rpc server started", "address", listenAddr, "blockBackend", cfg.Blocks.Backend)
	defer log.Infow("shutdown", "status", "cloudstore rpc server stopped", "address", listenAddr)
	go http.Serve(l, nil)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown
	log.Infow("shutdown", "status", "cloudstore rpc server stopping", "address", listenAddr)

	return nil
}

func newBlockStore(cfg *cloud.Config) (blockstore.Store, error) {
	switch cfg.Blocks.Backend {
	case "fs":
		return blockstore.NewFSStore(cfg.Blocks.Path), nil
	case "s3":
		return blockstore.NewS3Store(cfg.S3.Endpoint, cfg.S3.Bucket, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Secure)
	default:
		return nil, errors.New("unknown block backend: " + cfg.Blocks.Backend)
	}
}
