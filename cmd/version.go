package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	grovelogging "github.com/mattsolo1/grove-core/logging"
	"github.com/mattsolo1/grove-core/version"
	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-explorer/cmd/config"
	"github.com/mattsolo1/grove-explorer/pkg/service"
)

var versionUlog = grovelogging.NewUnifiedLogger("grove-explorer.cmd.version")

// buildReport is the build of the binary and the session it would open.
type buildReport struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Branch   string `json:"branch"`
	Backend  string `json:"backend"`
	DataDir  string `json:"dataDir"`
	Manifest string `json:"manifest,omitempty"`
}

func newBuildReport(ver, commit, branch string, cfg *service.Config) buildReport {
	r := buildReport{Version: ver, Commit: commit, Branch: branch}
	if cfg != nil {
		r.Backend = cfg.BackendURL
		r.DataDir = cfg.DataDir
		r.Manifest = cfg.ManifestPath
	}
	return r
}

func (r buildReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "grove-explorer %s (%s, %s)\n", r.Version, r.Commit, r.Branch)
	fmt.Fprintf(&b, "  backend   %s\n", orNone(r.Backend))
	fmt.Fprintf(&b, "  data dir  %s\n", orNone(r.DataDir))
	fmt.Fprintf(&b, "  manifest  %s", orNone(r.Manifest))
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// NewVersionCmd runs offline; the session settings come from the config
// layer alone.
func NewVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build and session information",
		Long:  "Display the version, commit and branch of grove-explorer, and the backend, data directory and manifest it is configured for",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetInfo()
			// a broken config still gets a version line
			cfg, _ := config.ServiceConfig()
			report := newBuildReport(info.Version, info.Commit, info.Branch, cfg)

			pretty := report.String()
			if jsonOutput {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal build report: %w", err)
				}
				pretty = string(data)
			}
			versionUlog.Info("Build").
				Field("version", report.Version).
				Field("commit", report.Commit).
				Field("backend", report.Backend).
				Pretty(pretty).
				PrettyOnly().
				Log(context.Background())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the build report as JSON")

	return cmd
}
