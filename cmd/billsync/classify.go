package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sciezka-prawa/sciezka-backend/internal/legislation/classify"
)

type classifiedEvent struct {
	Type        string    `json:"type"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

type classification struct {
	Number        string                 `json:"number"`
	Term          int                    `json:"term"`
	Title         string                 `json:"title"`
	Status        classify.Status        `json:"status"`
	StatusLabel   string                 `json:"status_label"`
	Category      classify.Category      `json:"category"`
	SubmitterType classify.SubmitterType `json:"submitter_type"`
	Tags          []string               `json:"tags"`
	Events        []classifiedEvent      `json:"events"`
}

func (c *cli) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file.json>",
		Short: "Classify Sejm process JSON without touching the database",
		Long: `Read one Sejm process object, or an array of them, as returned by
/sejm/term{N}/processes/{num}, and print the derived status, category,
submitter type, tags and timeline. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			procs, err := decodeProcesses(raw)
			if err != nil {
				return err
			}
			classifier := classify.FromEnv(c.log)
			out := make([]classification, 0, len(procs))
			for _, p := range procs {
				out = append(out, classifyOne(classifier, p))
			}
			if len(out) == 1 && !isArray(raw) {
				return writeJSON(cmd.OutOrStdout(), out[0])
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

func isArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func decodeProcesses(raw []byte) ([]classify.Process, error) {
	if isArray(raw) {
		var procs []classify.Process
		if err := json.Unmarshal(raw, &procs); err != nil {
			return nil, fmt.Errorf("decode processes: %w", err)
		}
		return procs, nil
	}
	var p classify.Process
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode process: %w", err)
	}
	return []classify.Process{p}, nil
}

func classifyOne(c *classify.Classifier, p classify.Process) classification {
	res := c.Classify(p)
	out := classification{
		Number:        p.Number,
		Term:          p.Term,
		Title:         p.Title,
		Status:        res.Status,
		StatusLabel:   res.Status.Label(),
		Category:      res.Category,
		SubmitterType: res.SubmitterType,
		Tags:          res.Tags,
		Events:        make([]classifiedEvent, 0, len(res.Events)),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	for _, ev := range res.Events {
		out.Events = append(out.Events, classifiedEvent{Type: ev.Type, Date: ev.Date, Description: ev.Description})
	}
	return out
}
