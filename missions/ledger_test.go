package missions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/takumiya/missiondash/models"
)

// memStore is an in-memory Store for ledger tests. A single mutex stands in
// for the per-user row lock of the real store; GrantDailyBonus keeps the
// same compare-and-set semantics.
type memStore struct {
	mu       sync.Mutex
	profiles map[uint]*models.Profile
	records  map[string]*models.DailyMissionRecord
	nextID   uint
}

func newMemStore() *memStore {
	return &memStore{
		profiles: map[uint]*models.Profile{},
		records:  map[string]*models.DailyMissionRecord{},
	}
}

func recKey(userID uint, day time.Time, missionType string) string {
	return fmt.Sprintf("%d|%s|%s", userID, day.Format("2006-01-02"), missionType)
}

func (m *memStore) InUserTx(ctx context.Context, userID uint, fn func(tx Store, profile *models.Profile) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		m.nextID++
		p = &models.Profile{ID: m.nextID, UserID: userID}
		m.profiles[userID] = p
	}
	snapshot := *p
	return fn(m, &snapshot)
}

func (m *memStore) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *p
	return &snapshot, nil
}

func (m *memStore) FindRecord(ctx context.Context, userID uint, day time.Time, missionType string) (*models.DailyMissionRecord, error) {
	r, ok := m.records[recKey(userID, day, missionType)]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *r
	return &snapshot, nil
}

func (m *memStore) CreateCompleted(ctx context.Context, userID uint, day time.Time, missionType string, completedAt time.Time) error {
	key := recKey(userID, day, missionType)
	if _, ok := m.records[key]; ok {
		return ErrStorageConflict
	}
	m.nextID++
	at := completedAt
	m.records[key] = &models.DailyMissionRecord{
		ID:          m.nextID,
		UserID:      userID,
		Date:        day,
		MissionType: missionType,
		Completed:   true,
		CompletedAt: &at,
	}
	return nil
}

func (m *memStore) MarkCompleted(ctx context.Context, recordID uint, completedAt time.Time) error {
	for _, r := range m.records {
		if r.ID == recordID {
			if r.Completed {
				return ErrStorageConflict
			}
			at := completedAt
			r.Completed = true
			r.CompletedAt = &at
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) RecordsForDay(ctx context.Context, userID uint, day time.Time) ([]models.DailyMissionRecord, error) {
	var out []models.DailyMissionRecord
	for _, r := range m.records {
		if r.UserID == userID && r.Date.Equal(day) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) AddPoints(ctx context.Context, userID uint, delta int) error {
	p, ok := m.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	p.Points += delta
	return nil
}

func (m *memStore) GrantDailyBonus(ctx context.Context, userID uint, day time.Time, points int) (bool, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return false, ErrNotFound
	}
	if SameDay(p.LastBonusDate, day) {
		return false, nil
	}
	p.Points += points
	d := day
	p.LastBonusDate = &d
	return true, nil
}

func testConfig() Config {
	return Config{
		Types:         DefaultTypes(),
		Rewards:       map[string]int{},
		DefaultReward: 1,
		BonusPoints:   50,
		Thresholds:    RankThresholds{Silver: 2, Gold: 5},
	}
}

var testNow = time.Date(2025, 11, 18, 10, 30, 0, 0, time.Local)

func TestRecordInteractionFirstCompletion(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(testConfig(), store)

	out, err := ledger.RecordInteraction(context.Background(), 1, TypeMarketplace, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.NewlyCompleted {
		t.Error("expected newly completed")
	}
	if out.PointsAwarded != 1 {
		t.Errorf("expected 1 point, got %d", out.PointsAwarded)
	}
	if out.BonusAwarded {
		t.Error("bonus must not fire on a single mission")
	}

	rec, err := store.FindRecord(context.Background(), 1, DateOf(testNow), TypeMarketplace)
	if err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	if !rec.Completed || rec.CompletedAt == nil || !rec.CompletedAt.Equal(testNow) {
		t.Errorf("record not completed at %v: %+v", testNow, rec)
	}
}

func TestRecordInteractionIsIdempotent(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(testConfig(), store)
	ctx := context.Background()

	if _, err := ledger.RecordInteraction(ctx, 1, TypeTravel, testNow); err != nil {
		t.Fatalf("first call: %v", err)
	}
	out, err := ledger.RecordInteraction(ctx, 1, TypeTravel, testNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if out.NewlyCompleted {
		t.Error("replay must not count as newly completed")
	}
	if out.PointsAwarded != 0 {
		t.Errorf("replay awarded %d points", out.PointsAwarded)
	}
	if pts, _ := ledger.Points(ctx, 1); pts != 1 {
		t.Errorf("expected 1 point after replay, got %d", pts)
	}
}

func TestBonusFiresOncePerDayInAnyOrder(t *testing.T) {
	orders := [][]string{
		{TypeMarketplace, TypeTravel, TypeGames},
		{TypeMarketplace, TypeGames, TypeTravel},
		{TypeTravel, TypeMarketplace, TypeGames},
		{TypeTravel, TypeGames, TypeMarketplace},
		{TypeGames, TypeMarketplace, TypeTravel},
		{TypeGames, TypeTravel, TypeMarketplace},
	}
	for _, order := range orders {
		store := newMemStore()
		ledger := NewLedger(testConfig(), store)
		ctx := context.Background()

		bonuses := 0
		for _, mt := range order {
			out, err := ledger.RecordInteraction(ctx, 1, mt, testNow)
			if err != nil {
				t.Fatalf("order %v mission %s: %v", order, mt, err)
			}
			if out.BonusAwarded {
				bonuses++
			}
		}
		if bonuses != 1 {
			t.Errorf("order %v granted %d bonuses", order, bonuses)
		}
		if pts, _ := ledger.Points(ctx, 1); pts != 3+50 {
			t.Errorf("order %v: expected 53 points, got %d", order, pts)
		}

		// Replaying any mission after the bonus never re-triggers it.
		out, err := ledger.RecordInteraction(ctx, 1, order[0], testNow.Add(time.Hour))
		if err != nil {
			t.Fatalf("replay: %v", err)
		}
		if out.BonusAwarded || out.PointsAwarded != 0 {
			t.Errorf("replay after bonus changed points: %+v", out)
		}
	}
}

func TestBonusRequiresAllMissionsToday(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(testConfig(), store)
	ctx := context.Background()
	yesterday := testNow.AddDate(0, 0, -1)

	// Two missions yesterday, the third today: yesterday's partial set
	// does not count toward today's bonus.
	for _, mt := range []string{TypeMarketplace, TypeTravel} {
		if _, err := ledger.RecordInteraction(ctx, 1, mt, yesterday); err != nil {
			t.Fatalf("yesterday %s: %v", mt, err)
		}
	}
	out, err := ledger.RecordInteraction(ctx, 1, TypeGames, testNow)
	if err != nil {
		t.Fatalf("today games: %v", err)
	}
	if out.BonusAwarded {
		t.Error("bonus granted with only one mission completed today")
	}

	// Finishing the remaining two today grants it exactly once.
	if _, err := ledger.RecordInteraction(ctx, 1, TypeMarketplace, testNow); err != nil {
		t.Fatalf("today marketplace: %v", err)
	}
	out, err = ledger.RecordInteraction(ctx, 1, TypeTravel, testNow)
	if err != nil {
		t.Fatalf("today travel: %v", err)
	}
	if !out.BonusAwarded {
		t.Error("bonus missing after completing all three today")
	}
}

func TestBonusGrantedOnReplayWhenPending(t *testing.T) {
	// All missions completed but the bonus not yet paid (e.g. a crash
	// between completion and grant): a replay settles it.
	store := newMemStore()
	cfg := testConfig()
	ledger := NewLedger(cfg, store)
	ctx := context.Background()
	day := DateOf(testNow)

	store.profiles[1] = &models.Profile{ID: 1, UserID: 1}
	for _, mt := range cfg.Types {
		if err := store.CreateCompleted(ctx, 1, day, mt, testNow); err != nil {
			t.Fatalf("seed %s: %v", mt, err)
		}
	}

	out, err := ledger.RecordInteraction(ctx, 1, TypeGames, testNow)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if out.NewlyCompleted {
		t.Error("seeded mission reported as newly completed")
	}
	if !out.BonusAwarded || out.PointsAwarded != 50 {
		t.Errorf("pending bonus not settled: %+v", out)
	}
}

func TestBonusCanRepeatNextDay(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(testConfig(), store)
	ctx := context.Background()

	for _, mt := range DefaultTypes() {
		if _, err := ledger.RecordInteraction(ctx, 1, mt, testNow); err != nil {
			t.Fatalf("day one %s: %v", mt, err)
		}
	}
	tomorrow := testNow.AddDate(0, 0, 1)
	bonuses := 0
	for _, mt := range DefaultTypes() {
		out, err := ledger.RecordInteraction(ctx, 1, mt, tomorrow)
		if err != nil {
			t.Fatalf("day two %s: %v", mt, err)
		}
		if out.BonusAwarded {
			bonuses++
		}
	}
	if bonuses != 1 {
		t.Errorf("expected one bonus on day two, got %d", bonuses)
	}
	if pts, _ := ledger.Points(ctx, 1); pts != 2*(3+50) {
		t.Errorf("expected 106 points over two days, got %d", pts)
	}
}

func TestInvalidMissionTypeRejected(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(testConfig(), store)

	_, err := ledger.RecordInteraction(context.Background(), 1, "books", testNow)
	if err != ErrInvalidMissionType {
		t.Fatalf("expected ErrInvalidMissionType, got %v", err)
	}
	if len(store.records) != 0 || len(store.profiles) != 0 {
		t.Error("rejected interaction mutated state")
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(testConfig(), store)

	_, err := ledger.RecordInteraction(context.Background(), 0, TypeGames, testNow)
	if err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(store.records) != 0 {
		t.Error("unauthenticated interaction mutated state")
	}
}

func TestPointsNeverDecrease(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(testConfig(), store)
	ctx := context.Background()

	last := 0
	steps := []struct {
		mt string
		at time.Time
	}{
		{TypeMarketplace, testNow},
		{TypeMarketplace, testNow.Add(time.Minute)},
		{TypeTravel, testNow.Add(2 * time.Minute)},
		{TypeGames, testNow.Add(3 * time.Minute)},
		{TypeGames, testNow.Add(4 * time.Minute)},
		{TypeTravel, testNow.AddDate(0, 0, 1)},
	}
	for i, s := range steps {
		if _, err := ledger.RecordInteraction(ctx, 1, s.mt, s.at); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		pts, _ := ledger.Points(ctx, 1)
		if pts < last {
			t.Fatalf("step %d: points decreased %d -> %d", i, last, pts)
		}
		last = pts
	}
}

func TestZeroRewardConfiguration(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultReward = 0
	cfg.Rewards = map[string]int{TypeTravel: 5}
	store := newMemStore()
	ledger := NewLedger(cfg, store)
	ctx := context.Background()

	out, err := ledger.RecordInteraction(ctx, 1, TypeMarketplace, testNow)
	if err != nil {
		t.Fatalf("marketplace: %v", err)
	}
	if !out.NewlyCompleted || out.PointsAwarded != 0 {
		t.Errorf("zero-reward mission: %+v", out)
	}

	out, err = ledger.RecordInteraction(ctx, 1, TypeTravel, testNow)
	if err != nil {
		t.Fatalf("travel: %v", err)
	}
	if out.PointsAwarded != 5 {
		t.Errorf("per-type override ignored: %+v", out)
	}
}

func TestConcurrentSameMission(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(testConfig(), store)
	ctx := context.Background()

	const callers = 8
	outcomes := make([]Outcome, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := ledger.RecordInteraction(ctx, 1, TypeMarketplace, testNow)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	completions := 0
	for _, out := range outcomes {
		if out.NewlyCompleted {
			completions++
		}
	}
	if completions != 1 {
		t.Errorf("%d callers observed newly completed", completions)
	}
	if pts, _ := ledger.Points(ctx, 1); pts != 1 {
		t.Errorf("expected 1 point after concurrent replays, got %d", pts)
	}
	if len(store.records) != 1 {
		t.Errorf("uniqueness violated: %d records", len(store.records))
	}
}

func TestConcurrentFinalMissionSingleBonus(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(testConfig(), store)
	ctx := context.Background()

	for _, mt := range []string{TypeMarketplace, TypeTravel} {
		if _, err := ledger.RecordInteraction(ctx, 1, mt, testNow); err != nil {
			t.Fatalf("setup %s: %v", mt, err)
		}
	}

	const callers = 8
	outcomes := make([]Outcome, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := ledger.RecordInteraction(ctx, 1, TypeGames, testNow)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	bonuses := 0
	for _, out := range outcomes {
		if out.BonusAwarded {
			bonuses++
		}
	}
	if bonuses != 1 {
		t.Errorf("bonus paid %d times under concurrency", bonuses)
	}
	if pts, _ := ledger.Points(ctx, 1); pts != 3+50 {
		t.Errorf("expected 53 points, got %d", pts)
	}
}

func TestStatusForDayDefaultsAndOverlay(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(testConfig(), store)
	ctx := context.Background()

	status, err := ledger.StatusForDay(ctx, 1, testNow)
	if err != nil {
		t.Fatalf("empty status: %v", err)
	}
	if len(status) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(status))
	}
	for mt, done := range status {
		if done {
			t.Errorf("%s defaulted to true", mt)
		}
	}

	if _, err := ledger.RecordInteraction(ctx, 1, TypeGames, testNow); err != nil {
		t.Fatalf("games: %v", err)
	}
	status, err = ledger.StatusForDay(ctx, 1, testNow)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status[TypeGames] || status[TypeMarketplace] || status[TypeTravel] {
		t.Errorf("overlay wrong: %v", status)
	}

	// Yesterday's view stays empty.
	status, err = ledger.StatusForDay(ctx, 1, testNow.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("yesterday status: %v", err)
	}
	if status[TypeGames] {
		t.Error("completion leaked across dates")
	}
}

func TestPointsMissingProfileIsZero(t *testing.T) {
	ledger := NewLedger(testConfig(), newMemStore())
	pts, err := ledger.Points(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pts != 0 {
		t.Errorf("missing profile reported %d points", pts)
	}
}
