package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mindburn-labs/execgate/internal/config"
	"github.com/mindburn-labs/execgate/pkg/model"
)

type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok, warn, fail
	Detail string `json:"detail,omitempty"`
}

// runDoctorCmd implements `gate doctor`, grounded in
// core/cmd/helm/doctor_init_trust.go's runDoctorCmd: a fast pre-flight
// operators can run before deploying a new profile version. Every profile
// file under PROFILES_ROOT must parse and declare default: DENY.
func runDoctorCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOut := fs.Bool("json", false, "emit results as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	var checks []doctorCheck
	allOK := true

	root := cfg.ProfilesRoot
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		checks = append(checks, doctorCheck{Name: "profiles_root", Status: "fail", Detail: fmt.Sprintf("%s is not a readable directory", root)})
		allOK = false
	} else {
		checks = append(checks, doctorCheck{Name: "profiles_root", Status: "ok", Detail: root})

		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != ".json" {
				return err
			}
			rel, _ := filepath.Rel(root, path)
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				checks = append(checks, doctorCheck{Name: rel, Status: "fail", Detail: readErr.Error()})
				allOK = false
				return nil
			}
			p, parseErr := model.ParseExecutionProfile(data)
			if parseErr != nil {
				checks = append(checks, doctorCheck{Name: rel, Status: "fail", Detail: parseErr.Error()})
				allOK = false
				return nil
			}
			if valErr := p.Validate(); valErr != nil {
				checks = append(checks, doctorCheck{Name: rel, Status: "fail", Detail: valErr.Error()})
				allOK = false
				return nil
			}
			if p.DefaultIsDeny() {
				checks = append(checks, doctorCheck{Name: rel, Status: "ok"})
			} else {
				checks = append(checks, doctorCheck{Name: rel, Status: "fail", Detail: fmt.Sprintf("default is %q, want DENY", p.Default)})
				allOK = false
			}
			return nil
		})
		if err != nil {
			checks = append(checks, doctorCheck{Name: "profiles_walk", Status: "fail", Detail: err.Error()})
			allOK = false
		}
	}

	if cfg.AuditLogPath == "" {
		checks = append(checks, doctorCheck{Name: "audit_log_path", Status: "fail", Detail: "AUDIT_LOG_PATH is empty"})
		allOK = false
	} else {
		checks = append(checks, doctorCheck{Name: "audit_log_path", Status: "ok", Detail: cfg.AuditLogPath})
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(checks)
	} else {
		for _, c := range checks {
			fmt.Fprintf(stdout, "[%s] %s %s\n", c.Status, c.Name, c.Detail)
		}
	}

	if !allOK {
		return 1
	}
	return 0
}
