// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/groundtruth/internal/extraction"
	"github.com/pdiddy/groundtruth/internal/review"
	"github.com/pdiddy/groundtruth/pkg/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work the human review queue (list, show, submit, stats)",
	Long: `Review manages escalation packets. List the queue, show a packet,
submit a reviewer decision, or print review progress. A packet can be
completed only once; submitting it writes the ground-truth record.`,
}

// --- list subcommand ---

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List escalation packets",
	RunE:  runReviewList,
}

func runReviewList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	if status != "" && status != string(types.ReviewPending) && status != string(types.ReviewCompleted) {
		return fmt.Errorf("invalid --status %q: use pending or completed", status)
	}

	store, err := reviewStore()
	if err != nil {
		return err
	}
	defer store.Close()

	packets, err := store.Packets(cmd.Context(), types.ReviewStatus(status))
	if err != nil {
		return err
	}
	if len(packets) == 0 {
		fmt.Println("No packets found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-24s  %-10s  %-6s  %-6s  %s\n", "Document", "Status", "Pages", "Issues", "Reason")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))
	for _, p := range packets {
		fmt.Fprintf(os.Stdout, "%-24s  %-10s  %-6d  %-6d  %s\n",
			p.DocumentID, p.Status, p.TotalPages, p.TotalIssues, truncate(p.Decision.Reason, 40))
	}
	return nil
}

// --- show subcommand ---

var reviewShowCmd = &cobra.Command{
	Use:   "show <doc_id>",
	Short: "Print one escalation packet",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewShow,
}

func runReviewShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := reviewStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := store.Packet(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return encode(p, asJSON)
}

// --- submit subcommand ---

var reviewSubmitCmd = &cobra.Command{
	Use:   "submit <doc_id>",
	Short: "Complete an escalation packet with a reviewer decision",
	Long: `Submit records a reviewer's decision. Use --agree to confirm the
proposed classification, or --corrections with a JSON or YAML file holding
corrected_dominant_type, corrected_segments and corrected_document_mixture.`,
	Args: cobra.ExactArgs(1),
	RunE: runReviewSubmit,
}

func runReviewSubmit(cmd *cobra.Command, args []string) error {
	sub := types.ReviewSubmission{DocumentID: args[0]}
	sub.Reviewer, _ = cmd.Flags().GetString("reviewer")
	sub.Agrees, _ = cmd.Flags().GetBool("agree")
	sub.Notes, _ = cmd.Flags().GetString("notes")
	sub.Confidence, _ = cmd.Flags().GetFloat64("confidence")

	if path, _ := cmd.Flags().GetString("corrections"); path != "" {
		var corr types.Corrections
		if err := extraction.DecodeFile(path, &corr); err != nil {
			return fmt.Errorf("loading corrections: %w", err)
		}
		sub.Corrections = &corr
	}

	store, err := reviewStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := review.NewFinalizer(store, slog.Default()).Submit(cmd.Context(), sub)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s recorded as %s (dominant: %s)\n",
		rec.DocumentID, rec.Provenance, rec.Classification.Dominant)
	return nil
}

// --- stats subcommand ---

var reviewStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print review progress and ground-truth provenance counts",
	RunE:  runReviewStats,
}

func runReviewStats(cmd *cobra.Command, args []string) error {
	store, err := reviewStore()
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Packets:   %d (%d pending, %d completed, %.0f%% complete)\n",
		st.TotalPackets, st.Pending, st.Completed, st.CompletionRate*100)
	fmt.Fprintln(os.Stdout, "Records:")
	for _, p := range []types.Provenance{types.ProvenanceAutoAccepted, types.ProvenanceHumanValidated, types.ProvenanceHumanCorrected} {
		fmt.Fprintf(os.Stdout, "  %-16s %d\n", p, st.Records[p])
	}
	return nil
}

// --- helpers ---

func reviewStore() (*review.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

func encode(v any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	reviewListCmd.Flags().String("status", "", "filter by status: pending or completed")

	reviewShowCmd.Flags().Bool("json", false, "print JSON instead of YAML")

	reviewSubmitCmd.Flags().String("reviewer", "", "reviewer name")
	reviewSubmitCmd.Flags().Bool("agree", false, "confirm the proposed classification")
	reviewSubmitCmd.Flags().String("corrections", "", "corrections file (.json or .yaml)")
	reviewSubmitCmd.Flags().String("notes", "", "review notes")
	reviewSubmitCmd.Flags().Float64("confidence", 1, "reviewer confidence in [0, 1]")
	_ = reviewSubmitCmd.MarkFlagRequired("reviewer")

	reviewCmd.AddCommand(reviewListCmd, reviewShowCmd, reviewSubmitCmd, reviewStatsCmd)
	rootCmd.AddCommand(reviewCmd)
}
