package pipeline

import (
	"math"

	"montage-orchestrator/internal/ledger"
	"montage-orchestrator/internal/montage"
	"montage-orchestrator/internal/selfedit"
)

// Report is the job report exposed to callers: the improvement loop report
// plus pipeline level fields.
type Report struct {
	selfedit.Report
	DurationTargetSeconds float64      `json:"duration_target_seconds"`
	DurationOutputSeconds float64      `json:"duration_output_seconds"`
	DurationDeltaSeconds  float64      `json:"duration_delta_seconds"`
	Plan                  ledger.Tier  `json:"plan"`
	Mode                  montage.Mode `json:"mode"`
}

func newReport(loop selfedit.Report, target, output float64, tier ledger.Tier, mode montage.Mode) Report {
	return Report{
		Report:                loop,
		DurationTargetSeconds: round3(target),
		DurationOutputSeconds: round3(output),
		DurationDeltaSeconds:  round3(math.Abs(target - output)),
		Plan:                  tier,
		Mode:                  mode,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
