package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolarb/internal/model"
)

func runPaths(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	_, generated, err := buildCatalog(cfg, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPOOLS\tFORWARD\tREVERSE")
	for _, p := range generated {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Type(), p.Key, p.Describe(model.Forward), p.Describe(model.Reverse))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	logger.Info("paths generated", zap.Int("count", len(generated)), zap.String("base", cfg.Base))
	return nil
}
