package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"montage-orchestrator/internal/analysis"
	"montage-orchestrator/internal/montage"
)

func newPlanCmd() *cobra.Command {
	var (
		duration float64
		bpm      int
		mode     string
		prompt   string
		lyrics   string
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the segment plan for a track without rendering",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := montage.Mode(mode)
			if !m.Valid() {
				return fmt.Errorf("mode must be fast or high, got %q", mode)
			}
			if duration <= 0 {
				return analysis.ErrInvalidDuration
			}
			audio := montage.Audio{
				Duration:    duration,
				BPM:         bpm,
				Sections:    analysis.Sections(duration),
				EnergyCurve: analysis.EnergyCurve(duration),
				Mode:        m,
			}
			plan := montage.PlanTimeline(audio, analysis.SummarizeLyrics(lyrics), prompt)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		},
	}
	cmd.Flags().Float64Var(&duration, "duration", 30, "track duration in seconds")
	cmd.Flags().IntVar(&bpm, "bpm", 120, "track tempo")
	cmd.Flags().StringVar(&mode, "mode", string(montage.ModeFast), "fast or high")
	cmd.Flags().StringVar(&prompt, "prompt", "", "style prompt; derived from the track when empty")
	cmd.Flags().StringVar(&lyrics, "lyrics", "", "lyric text")
	return cmd
}
