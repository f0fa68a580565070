package cmd

import (
	"context"
	"fmt"
	"os/exec"

	"epub2pdf/pkg/config"
	"epub2pdf/pkg/constants"

	"github.com/spf13/cobra"
)

// toolProbe describes one external dependency and how to verify it
type toolProbe struct {
	name     string
	command  string
	args     []string
	required string
	hint     string
}

// checkCmd probes the external tools the converter shells out to
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check availability of external tools",
	Long: `Probes the external tools used during conversion and reports which
are available. Calibre is required for EPUB inputs, unar is a fallback
for stubborn CBR archives, and exiftool enables metadata stamping.`,
	Run: func(cmd *cobra.Command, args []string) {
		runCheck()
	},
}

func runCheck() {
	cfg := config.LoadConfigWithEnvOverrides()

	probes := []toolProbe{
		{
			name:     "Calibre (ebook-convert)",
			command:  cfg.CalibrePath,
			args:     []string{"--version"},
			required: "required for EPUB inputs",
			hint:     "install from https://calibre-ebook.com or your package manager",
		},
		{
			name:     "unar",
			command:  cfg.UnarPath,
			args:     []string{"-version"},
			required: "fallback extractor for CBR archives",
			hint:     "install with 'apt install unar' or 'brew install unar'",
		},
		{
			name:     "exiftool",
			command:  cfg.ExiftoolPath,
			args:     []string{"-ver"},
			required: "optional, enables PDF metadata stamping",
			hint:     "install with 'apt install libimage-exiftool-perl' or 'brew install exiftool'",
		},
	}

	fmt.Printf("🔍 Checking external tools\n\n")
	missing := 0
	for _, probe := range probes {
		if probeTool(probe) {
			fmt.Printf("✅ %s: found (%s)\n", probe.name, probe.command)
		} else {
			missing++
			fmt.Printf("❌ %s: not found (%s)\n", probe.name, probe.required)
			fmt.Printf("   → %s\n", probe.hint)
		}
	}

	fmt.Printf("\n")
	if missing == 0 {
		fmt.Printf("🎉 All external tools are available\n")
	} else {
		fmt.Printf("⚠️  %d tool(s) missing. CBZ conversion works without any of them.\n", missing)
	}
}

// probeTool runs the tool's version command inside a short window so a
// hung binary cannot stall the check.
func probeTool(probe toolProbe) bool {
	if _, err := exec.LookPath(probe.command); err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), constants.DependencyProbeWindow)
	defer cancel()
	return exec.CommandContext(ctx, probe.command, probe.args...).Run() == nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
