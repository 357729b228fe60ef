package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindburn-labs/execgate/internal/buildinfo"
	"github.com/mindburn-labs/execgate/internal/config"
	"github.com/mindburn-labs/execgate/pkg/audit"
	"github.com/mindburn-labs/execgate/pkg/decision"
	"github.com/mindburn-labs/execgate/pkg/enforce"
	"github.com/mindburn-labs/execgate/pkg/enforce/controlverify"
	"github.com/mindburn-labs/execgate/pkg/gate"
	"github.com/mindburn-labs/execgate/pkg/profile"
	"github.com/mindburn-labs/execgate/pkg/schema"
	"github.com/mindburn-labs/execgate/pkg/transport"
)

// components holds every constructed collaborator the serve subcommand
// uses, plus whatever needs an orderly Close on shutdown.
type components struct {
	orchestrator *gate.Orchestrator
	server       *transport.Server
	auditLog     *audit.Log
	pgIndex      *audit.PostgresIndex
}

func (c *components) Close() {
	if c.pgIndex != nil {
		_ = c.pgIndex.Close()
	}
	if c.auditLog != nil {
		_ = c.auditLog.Close()
	}
}

func buildVerifier(cfg *config.Config) (controlverify.Verifier, error) {
	if cfg.ControlVerifier == "" || cfg.ControlVerifier == "reference" {
		return controlverify.NewReference(), nil
	}
	expr, ok := strings.CutPrefix(cfg.ControlVerifier, "cel:")
	if !ok {
		return nil, fmt.Errorf("unrecognized GATE_CONTROL_VERIFIER %q (want \"reference\" or \"cel:<expr>\")", cfg.ControlVerifier)
	}
	return controlverify.NewCEL(expr)
}

func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	sv, err := schema.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile schemas: %w", err)
	}

	loader := profile.NewLoader(cfg.ProfilesRoot)
	if cfg.ProfileCacheRedisAddr != "" {
		loader = loader.WithRedisCache(profile.NewRedisCache(cfg.ProfileCacheRedisAddr, "", cfg.ProfileCacheRedisDB))
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return nil, err
	}
	engine := enforce.NewEngine(verifier)

	runtime := buildinfo.Meta(verifier.Name())
	assembler := decision.NewAssembler(runtime)

	auditLog, err := audit.Open(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	var pgIndex *audit.PostgresIndex
	var index gate.SecondaryIndex
	if cfg.AuditIndexDSN != "" {
		pgIndex, err = audit.OpenPostgresIndex(ctx, cfg.AuditIndexDSN)
		if err != nil {
			_ = auditLog.Close()
			return nil, fmt.Errorf("open postgres audit index: %w", err)
		}
		index = pgIndex
	}

	orchestrator := gate.New(sv, loader, engine, assembler, auditLog, index, nil)

	var validator *transport.Validator
	if cfg.JWTPublicKeyPath != "" {
		validator, err = transport.LoadValidator(cfg.JWTPublicKeyPath)
		if err != nil {
			_ = auditLog.Close()
			if pgIndex != nil {
				_ = pgIndex.Close()
			}
			return nil, fmt.Errorf("load jwt validator: %w", err)
		}
	}

	server := transport.NewServer(orchestrator, validator, nil)

	return &components{orchestrator: orchestrator, server: server, auditLog: auditLog, pgIndex: pgIndex}, nil
}
