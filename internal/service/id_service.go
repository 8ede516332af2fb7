package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
)

// Alphabet for the random part of lead identifiers. I, L and O are excluded
// because they are misread on printed requisition forms.
const leadIDAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ0123456789"

const idMaxAttempts = 10

// roleCodes maps user roles to the two-letter prefix embedded in lead IDs.
var roleCodes = map[domain.UserRole]string{
	domain.UserRoleAdmin:             "AD",
	domain.UserRoleSales:             "SA",
	domain.UserRoleLabTechnician:     "LB",
	domain.UserRoleBioinformatician:  "BI",
	domain.UserRoleGeneticCounsellor: "GC",
	domain.UserRoleFinance:           "FN",
	domain.UserRoleSupport:           "SU",
}

// IDService generates the human-readable identifiers printed on requisition
// forms and sample tubes. Generated IDs are checked against storage before
// use; the unique indexes remain the final arbiter.
type IDService struct {
	leadRepo   *repository.LeadRepository
	sampleRepo *repository.SampleRepository
	logger     *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand

	// now is swappable in tests
	now func() time.Time
	// sleep is swappable in tests so collision retries don't take real seconds
	sleep func(ctx context.Context, d time.Duration) error
}

func NewIDService(leadRepo *repository.LeadRepository, sampleRepo *repository.SampleRepository, logger *zap.Logger) *IDService {
	return &IDService{
		leadRepo:   leadRepo,
		sampleRepo: sampleRepo,
		logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RoleCode resolves the two-letter prefix for a role string. Unknown roles
// fall back to their first two letters, empty roles to admin.
func RoleCode(role string) string {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		return roleCodes[domain.UserRoleAdmin]
	}
	if code, ok := roleCodes[domain.UserRole(role)]; ok {
		return code
	}
	upper := []rune(strings.ToUpper(role))
	if len(upper) < 2 {
		return roleCodes[domain.UserRoleAdmin]
	}
	return string(upper[:2])
}

func (s *IDService) randomSuffix(n int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(leadIDAlphabet[s.rng.Intn(len(leadIDAlphabet))])
	}
	return b.String()
}

// GenerateLeadID produces a unique role-coded lead identifier:
// two-digit year, two-letter role code, six random characters.
func (s *IDService) GenerateLeadID(ctx context.Context, role string) (string, error) {
	prefix := fmt.Sprintf("%02d%s", s.now().Year()%100, RoleCode(role))

	for attempt := 0; attempt < idMaxAttempts; attempt++ {
		candidate := prefix + s.randomSuffix(6)
		exists, err := s.leadRepo.UniqueIDExists(ctx, candidate)
		if err != nil {
			// A lookup failure must not block intake; the unique index on
			// leads.unique_id catches the rare collision this lets through.
			s.logger.Warn("lead ID uniqueness check failed, proceeding",
				zap.String("candidate", candidate),
				zap.Error(err))
			return candidate, nil
		}
		if !exists {
			return candidate, nil
		}
	}

	// All attempts collided. Fall back to a timestamp suffix, which is unique
	// enough at intake rates and still carries the role prefix.
	millis := s.now().UnixMilli()
	fallback := fmt.Sprintf("%s%06d", prefix, millis%1000000)
	s.logger.Warn("lead ID generation exhausted random attempts, using timestamp fallback",
		zap.String("id", fallback))
	return fallback, nil
}

// GenerateSampleID produces a unique timestamp-coded sample identifier:
// PG (clinical) or DG (discovery) followed by YYMMDDHHMMSS local time.
// Because the timestamp only moves once per second, a collision is retried
// after a one-second pause rather than immediately.
func (s *IDService) GenerateSampleID(ctx context.Context, category domain.TestCategory) (string, error) {
	prefix := samplePrefix(category)

	for attempt := 0; attempt < idMaxAttempts; attempt++ {
		now := s.now()
		candidate := prefix + now.Format("060102150405")
		exists, err := s.sampleRepo.SampleIDExists(ctx, candidate)
		if err != nil {
			s.logger.Warn("sample ID uniqueness check failed, proceeding",
				zap.String("candidate", candidate),
				zap.Error(err))
			return candidate, nil
		}
		if !exists {
			return candidate, nil
		}
		if err := s.sleep(ctx, time.Second); err != nil {
			return "", err
		}
	}

	// Exhausted: widen the identifier with two millisecond digits.
	now := s.now()
	fallback := prefix + now.Format("060102150405") + fmt.Sprintf("%02d", now.Nanosecond()/10000000)
	s.logger.Warn("sample ID generation exhausted attempts, using millisecond fallback",
		zap.String("id", fallback))
	return fallback, nil
}

// UnsafeLeadID builds a lead identifier without a uniqueness check. Display
// and preview use only; never persist the result.
func (s *IDService) UnsafeLeadID(role string) string {
	return fmt.Sprintf("%02d%s%s", s.now().Year()%100, RoleCode(role), s.randomSuffix(6))
}

// UnsafeSampleID builds a sample identifier without a uniqueness check. The
// conversion transaction uses this fast path; the unique index on
// samples.sample_id rejects the rare same-second duplicate and rolls the
// conversion back.
func (s *IDService) UnsafeSampleID(category domain.TestCategory) string {
	return samplePrefix(category) + s.now().Format("060102150405")
}

func samplePrefix(category domain.TestCategory) string {
	if category == domain.TestCategoryDiscovery {
		return "DG"
	}
	return "PG"
}
