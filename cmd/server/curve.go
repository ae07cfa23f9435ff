package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/nogal/internal/domain/models"
)

var (
	curveProject string
	curveVariety string
)

// curveCmd is the parent command for yield curve management
var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Show or import the yield curve of a project",
	Long: `Manage the yield curve (kg per tree by age) of a project.

Available subcommands:
  show   - Print the curve
  import - Replace the curve with a JSON list of {"age", "kg"} points`,
}

var curveShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the yield curve",
	RunE:  runCurveShow,
}

var curveImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the yield curve from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCurveImport,
}

func init() {
	curveCmd.PersistentFlags().StringVar(&curveProject, "project", "", "Project id")
	curveCmd.PersistentFlags().StringVar(&curveVariety, "variety", models.VarietyGeneral, "Curve variety")
	_ = curveCmd.MarkPersistentFlagRequired("project")
}

func runCurveShow(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	model, err := a.estimation.YieldModel(ctx, curveProject, curveVariety)
	if err != nil {
		return err
	}
	return printCurve(cmd.OutOrStdout(), model)
}

func runCurveImport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read curve file: %w", err)
	}
	var curve []models.YieldCurvePoint
	if err := json.Unmarshal(raw, &curve); err != nil {
		return fmt.Errorf("parse curve file: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	model, err := a.estimation.SaveYieldModel(ctx, curveProject, curveVariety, curve)
	if err != nil {
		return err
	}
	return printCurve(cmd.OutOrStdout(), model)
}

func printCurve(out io.Writer, model *models.YieldModel) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "project %s, variety %s\n", model.ProjectID, model.Variety)
	fmt.Fprintln(tw, "AGE\tKG/TREE")
	for _, p := range model.Curve {
		fmt.Fprintf(tw, "%d\t%.2f\n", p.Age, p.Kg)
	}
	return tw.Flush()
}
