package classify

import "strings"

// FlattenStages returns stages depth-first in pre-order. A child with no date
// takes its parent's date.
func FlattenStages(stages []Stage) []FlatStage {
	out := make([]FlatStage, 0, len(stages))
	var walk func(list []Stage, depth, parent int, parentDate string)
	walk = func(list []Stage, depth, parent int, parentDate string) {
		for _, s := range list {
			date := strings.TrimSpace(s.Date)
			if date == "" {
				date = parentDate
			}
			idx := len(out)
			out = append(out, FlatStage{
				Name:     s.StageName,
				Decision: s.Decision,
				Date:     date,
				Depth:    depth,
				Parent:   parent,
				Index:    idx,
			})
			if len(s.Children) > 0 {
				walk(s.Children, depth+1, idx, date)
			}
		}
	}
	walk(stages, 0, -1, "")
	return out
}
