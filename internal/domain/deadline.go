package domain

import "time"

// StageCount is the number of sequential financing stages
const StageCount = 5

// SupportedBankExtension is the extra allowance granted on the final stage
// when the financing bank is a supported bank.
const SupportedBankExtension = 120 * time.Hour

// baseStageDeadlines holds the SLA per stage, index 0 is stage 1
var baseStageDeadlines = [StageCount]time.Duration{
	48 * time.Hour,  // application submitted to bank
	72 * time.Hour,  // documents verified
	120 * time.Hour, // appraisal requested
	72 * time.Hour,  // appraisal completed
	120 * time.Hour, // final approval and contract signing
}

// DeadlineHours returns the SLA duration for a stage.
// Stage 5 gets SupportedBankExtension on top of its base duration for supported banks.
// Stages outside 1..StageCount have no deadline and return 0.
func DeadlineHours(stage int, isSupportedBank bool) time.Duration {
	if stage < 1 || stage > StageCount {
		return 0
	}
	d := baseStageDeadlines[stage-1]
	if stage == StageCount && isSupportedBank {
		d += SupportedBankExtension
	}
	return d
}
