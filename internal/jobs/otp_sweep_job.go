package jobs

import (
	"go.uber.org/zap"
)

// OTPSweepJobName is the name of the expired login code sweep job
const OTPSweepJobName = "otp_sweep"

// OTPSweeper removes expired one-time login codes.
type OTPSweeper interface {
	Sweep() int
}

// OTPSweepJob evicts expired login codes so the in-memory store does not
// accumulate entries for addresses that never complete verification.
type OTPSweepJob struct {
	store  OTPSweeper
	logger *zap.Logger
}

func NewOTPSweepJob(store OTPSweeper, logger *zap.Logger) *OTPSweepJob {
	return &OTPSweepJob{
		store:  store,
		logger: logger,
	}
}

// Run evicts expired codes once.
func (j *OTPSweepJob) Run() {
	if removed := j.store.Sweep(); removed > 0 {
		j.logger.Debug("swept expired login codes", zap.Int("removed", removed))
	}
}
