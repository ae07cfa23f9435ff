package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"
)

var (
	snapshotProject  string
	snapshotCampaign string
	snapshotNotify   bool
)

// snapshotCmd archives a campaign dashboard outside the weekly schedule
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Archive the dashboard of a campaign",
	Long: `Freeze the dashboard of a campaign into the snapshot archive and the
spreadsheet export. Without --campaign the current campaign is used.`,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotProject, "project", "", "Project id (default: REPORT_PROJECT_ID)")
	snapshotCmd.Flags().StringVar(&snapshotCampaign, "campaign", "", "Campaign id (default: current campaign)")
	snapshotCmd.Flags().BoolVar(&snapshotNotify, "notify", false, "Also send the weekly summary to the farm manager")
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	projectID := snapshotProject
	if projectID == "" {
		projectID = a.cfg.Reporting.ProjectID
	}
	if projectID == "" {
		return errors.New("--project or REPORT_PROJECT_ID is required")
	}

	campaignID := snapshotCampaign
	if campaignID == "" {
		campaign, err := a.reporting.CurrentCampaign(ctx, projectID)
		if err != nil {
			return err
		}
		campaignID = campaign.ID
	}

	snapshot, err := a.reporting.CreateSnapshot(ctx, projectID, campaignID)
	if err != nil {
		return err
	}

	if snapshotNotify {
		summary, err := a.reporting.WeeklySummary(ctx, projectID)
		if err != nil {
			return err
		}
		if err := a.notifier.NotifyManager(ctx, summary); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(snapshot)
}
