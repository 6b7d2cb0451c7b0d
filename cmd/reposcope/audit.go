package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"reposcope/internal/audit"
)

var (
	auditRunFlag      string
	auditOutputFlag   string
	auditCompressFlag bool
	auditDaysFlag     int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Work with the recorded tool-call trail",
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded tool calls as JSONL",
	Long: `Export the audit trail as JSONL, one event per line. Arguments were
redacted before they were stored, so the export is safe to share.
With --compress the stream is zstd-encoded.`,
	Args: cobra.NoArgs,
	RunE: runAuditExport,
}

var auditPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete events older than the retention window",
	Args:  cobra.NoArgs,
	RunE:  runAuditPurge,
}

func init() {
	auditExportCmd.Flags().StringVar(&auditRunFlag, "run", "", "Only export one run id")
	auditExportCmd.Flags().StringVar(&auditOutputFlag, "output", "", "Write to a file instead of stdout")
	auditExportCmd.Flags().BoolVar(&auditCompressFlag, "compress", false, "zstd-compress the output")

	auditPurgeCmd.Flags().IntVar(&auditDaysFlag, "days", 0, "Retention in days (default from config)")

	auditCmd.AddCommand(auditExportCmd)
	auditCmd.AddCommand(auditPurgeCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	var out io.Writer = os.Stdout
	if auditOutputFlag != "" {
		f, err := os.Create(auditOutputFlag)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	n, err := audit.Export(e.db, auditRunFlag, out, auditCompressFlag)
	if err != nil {
		return err
	}
	if auditOutputFlag != "" {
		fmt.Fprintf(os.Stderr, "Exported %d events to %s\n", n, auditOutputFlag)
	}
	return nil
}

func runAuditPurge(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	days := auditDaysFlag
	if days <= 0 {
		days = e.cfg.Audit.RetentionDays
	}

	trail := audit.NewTrail(e.db, e.logger, true)
	if err := trail.Purge(days); err != nil {
		return err
	}
	fmt.Printf("Purged events older than %d days\n", days)
	return nil
}
