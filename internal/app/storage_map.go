package app

import (
	"nftbot/internal/config"
	"nftbot/internal/storage"
)

func mapStorageConfig(rt config.Runtime) storage.Config {
	sc := storage.Config{
		Driver:    rt.LedgerDriver,
		Path:      rt.LedgerPath,
		DSN:       rt.LedgerDSN,
		KeyPrefix: rt.LedgerKeyPrefix,
	}
	if rt.LedgerDriver == "sqlite" {
		sc.BusyTimeout = rt.LedgerBusyTimeout
	}
	return sc
}
