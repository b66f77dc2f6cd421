package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sciezka-prawa/sciezka-backend/internal/legislation/classify"
	"github.com/sciezka-prawa/sciezka-backend/internal/platform/rcl"
)

type rclStage struct {
	rcl.Stage
	Status classify.Status `json:"status"`
}

type rclReport struct {
	*rcl.Project
	HasOSR bool       `json:"has_osr"`
	Stages []rclStage `json:"stages"`
}

func (c *cli) rclCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rcl <id>",
		Short: "Fetch and normalize one RCL project",
		Long: `Fetch a project from legislacja.gov.pl and print its normalized metadata.
<id> is either the numeric RCL project id or a list number such as UD123,
which is resolved through the RCL search first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := rcl.NewFromEnv(c.log)
			if err != nil {
				return fmt.Errorf("init rcl client: %w", err)
			}
			id := strings.TrimSpace(args[0])
			if !isDigits(id) {
				listing, err := client.SearchByNumber(ctx, id)
				if err != nil {
					return fmt.Errorf("search %s: %w", id, err)
				}
				c.log.Info("resolved rcl number", "number", id, "project_id", listing.ID)
				id = listing.ID
			}
			project, err := client.FetchProject(ctx, id)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", id, err)
			}
			return writeJSON(cmd.OutOrStdout(), newRCLReport(classify.FromEnv(c.log), project))
		},
	}
}

func newRCLReport(classifier *classify.Classifier, p *rcl.Project) rclReport {
	out := rclReport{Project: p, HasOSR: p.HasOSR(), Stages: make([]rclStage, 0, len(p.Stages))}
	for _, st := range p.Stages {
		out.Stages = append(out.Stages, rclStage{Stage: st, Status: classifier.ClassifyRCLStage(st.Name)})
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
