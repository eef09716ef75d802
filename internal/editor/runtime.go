// Package editor wires configuration into a ready Session: catalogs, the
// casing prober, restore points, the audit log and the index.
package editor

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"ntwtf.ai/internal/catalogs"
	"ntwtf.ai/internal/config"
	"ntwtf.ai/internal/persistence/indexdb"
	plog "ntwtf.ai/internal/persistence/log"
	"ntwtf.ai/internal/persistence/rawjson"
	"ntwtf.ai/internal/persistence/snapshot"
	"ntwtf.ai/internal/save"
)

type Runtime struct {
	Config   config.Config
	Catalogs *catalogs.Catalogs
	Session  *save.Session

	Snapshots *snapshot.Store
	Audit     *plog.AuditLogger
	Index     *indexdb.SQLiteIndex
}

// IndexPath is where the sqlite index lives under dataDir.
func IndexPath(dataDir string) string { return filepath.Join(dataDir, "index", "saves.sqlite") }

// SnapshotDir is where restore points live under dataDir.
func SnapshotDir(dataDir string) string { return filepath.Join(dataDir, "snapshots") }

func Open(cfg config.Config, logger *log.Logger) (*Runtime, error) {
	cats, err := catalogs.Load(cfg.GameDataDir)
	if err != nil {
		return nil, fmt.Errorf("load catalogs: %w", err)
	}
	probes := make([]rawjson.Style, 0, len(cfg.CasingProbes))
	for _, p := range cfg.CasingProbes {
		st, err := rawjson.ParseStyle(p)
		if err != nil {
			return nil, err
		}
		probes = append(probes, st)
	}

	rt := &Runtime{Config: cfg, Catalogs: cats}
	if cfg.Snapshots.Enabled {
		rt.Snapshots = snapshot.NewStore(SnapshotDir(cfg.DataDir), cfg.Snapshots.Keep)
	}
	if cfg.Audit.Enabled {
		rt.Audit = plog.NewAuditLogger(cfg.DataDir)
	}
	if cfg.Index.Enabled {
		idx, err := indexdb.OpenSQLite(IndexPath(cfg.DataDir))
		if err != nil {
			// The index only backs history; editing works without it.
			logger.Printf("index disabled: %v", err)
		} else {
			rt.Index = idx
		}
	}

	rt.Session = save.NewSession(save.Options{
		Catalogs:          cats,
		Probes:            probes,
		WhiteCheckTables:  cfg.WhiteCheckTables,
		BackupGenerations: cfg.BackupGenerations,
		Snapshots:         rt.Snapshots,
		Audit:             rt.Audit,
		Index:             rt.Index,
		Logger:            logger,
	})
	return rt, nil
}

func (rt *Runtime) Close() error {
	var errs []error
	if rt.Audit != nil {
		errs = append(errs, rt.Audit.Close())
	}
	if rt.Index != nil {
		errs = append(errs, rt.Index.Close())
	}
	return errors.Join(errs...)
}
