package pod

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
)

// fakeRepo is an in-memory Repository with error injection for testing
// the tracker without a database.
type fakeRepo struct {
	mu     sync.Mutex
	pods   map[string]*Pod
	logs   []OccupantLog
	nextID int64

	upsertErr error
	logErr    error
	getErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{pods: make(map[string]*Pod), nextID: 1}
}

func (f *fakeRepo) Upsert(_ context.Context, p *Pod) (*Pod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if p.PodID == "" {
		return nil, ErrInvalidPodID
	}

	stored := p.Copy()
	if existing, ok := f.pods[p.PodID]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.ID = f.nextID
		f.nextID++
	}
	f.pods[p.PodID] = stored
	return stored.Copy(), nil
}

func (f *fakeRepo) AppendLog(_ context.Context, log *OccupantLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.logErr != nil {
		return f.logErr
	}
	log.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeRepo) GetByPodID(_ context.Context, podID string) (*Pod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.pods[podID]
	if !ok {
		return nil, ErrPodNotFound
	}
	return p.Copy(), nil
}

func (f *fakeRepo) List(_ context.Context) ([]Pod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pods := make([]Pod, 0, len(f.pods))
	for _, p := range f.pods {
		pods = append(pods, *p.Copy())
	}
	sort.Slice(pods, func(i, j int) bool { return pods[i].PodID < pods[j].PodID })
	return pods, nil
}

func (f *fakeRepo) RecentLogs(_ context.Context, podID string, _ int) ([]OccupantLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.pods[podID]; !ok {
		return nil, ErrPodNotFound
	}
	var logs []OccupantLog
	for i := len(f.logs) - 1; i >= 0; i-- {
		if f.logs[i].PodExternalID == podID {
			logs = append(logs, f.logs[i])
		}
	}
	return logs, nil
}

func TestObserve_CreatesPod(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewTracker(repo)
	ctx := context.Background()

	p, err := tracker.Observe(ctx, "desk-01", Observation{Occupied: true})
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	if p.ID == 0 {
		t.Error("ID = 0, want assigned")
	}
	if p.Name != "Pod desk-01" {
		t.Errorf("Name = %q, want default", p.Name)
	}
	if p.Location != "Unknown" {
		t.Errorf("Location = %q, want Unknown", p.Location)
	}
	if !p.IsOccupied {
		t.Error("IsOccupied = false, want true")
	}

	if len(repo.logs) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(repo.logs))
	}
	if repo.logs[0].PodID != p.ID {
		t.Errorf("log.PodID = %d, want %d (resolved internal key)", repo.logs[0].PodID, p.ID)
	}
}

func TestObserve_UpdatesExisting(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewTracker(repo)
	ctx := context.Background()

	first, err := tracker.Observe(ctx, "desk-01", Observation{Occupied: true, RSSI: intPtr(-50)})
	if err != nil {
		t.Fatalf("first Observe() error = %v", err)
	}

	second, err := tracker.Observe(ctx, "desk-01", Observation{Occupied: false})
	if err != nil {
		t.Fatalf("second Observe() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("ID changed: %d -> %d", first.ID, second.ID)
	}
	if second.IsOccupied {
		t.Error("IsOccupied = true, want false")
	}
	if second.LastRSSI != nil {
		t.Errorf("LastRSSI = %v, want nil (cleared by second reading)", second.LastRSSI)
	}
	if len(repo.logs) != 2 {
		t.Errorf("expected 2 history rows, got %d", len(repo.logs))
	}
}

func TestObserve_LogFailureDoesNotFailObserve(t *testing.T) {
	repo := newFakeRepo()
	repo.logErr = errors.New("disk full")
	tracker := NewTracker(repo)
	ctx := context.Background()

	p, err := tracker.Observe(ctx, "desk-01", Observation{Occupied: true})
	if err != nil {
		t.Fatalf("Observe() error = %v, want nil despite log failure", err)
	}
	if p == nil || !p.IsOccupied {
		t.Fatal("pod snapshot was not updated")
	}

	// The snapshot must be persisted even though the log append failed.
	stored, err := repo.GetByPodID(ctx, "desk-01")
	if err != nil {
		t.Fatalf("GetByPodID() error = %v", err)
	}
	if !stored.IsOccupied {
		t.Error("stored snapshot not updated")
	}
	if len(repo.logs) != 0 {
		t.Errorf("expected no history rows, got %d", len(repo.logs))
	}
}

func TestObserve_UpsertFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.upsertErr = errors.New("database locked")
	tracker := NewTracker(repo)

	_, err := tracker.Observe(context.Background(), "desk-01", Observation{Occupied: true})
	if err == nil {
		t.Fatal("Observe() expected error when upsert fails")
	}
	if len(repo.logs) != 0 {
		t.Errorf("expected no history rows after failed upsert, got %d", len(repo.logs))
	}
}

func TestObserve_EmptyPodID(t *testing.T) {
	tracker := NewTracker(newFakeRepo())

	_, err := tracker.Observe(context.Background(), "", Observation{Occupied: true})
	if !errors.Is(err, ErrInvalidPodID) {
		t.Errorf("Observe() error = %v, want ErrInvalidPodID", err)
	}
}

func TestUpdateDetails(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewTracker(repo)
	ctx := context.Background()

	if _, err := tracker.Observe(ctx, "desk-01", Observation{Occupied: true}); err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	t.Run("sets name and location", func(t *testing.T) {
		p, err := tracker.UpdateDetails(ctx, "desk-01", "Corner desk", "Floor 3", nil)
		if err != nil {
			t.Fatalf("UpdateDetails() error = %v", err)
		}
		if p.Name != "Corner desk" || p.Location != "Floor 3" {
			t.Errorf("name/location = %q/%q, want Corner desk/Floor 3", p.Name, p.Location)
		}
	})

	t.Run("empty fields unchanged", func(t *testing.T) {
		p, err := tracker.UpdateDetails(ctx, "desk-01", "", "", nil)
		if err != nil {
			t.Fatalf("UpdateDetails() error = %v", err)
		}
		if p.Name != "Corner desk" || p.Location != "Floor 3" {
			t.Errorf("name/location = %q/%q, want unchanged", p.Name, p.Location)
		}
	})

	t.Run("occupancy untouched", func(t *testing.T) {
		p, err := tracker.Get(ctx, "desk-01")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !p.IsOccupied {
			t.Error("IsOccupied changed by details update")
		}
	})

	t.Run("deactivates and reactivates", func(t *testing.T) {
		inactive := false
		p, err := tracker.UpdateDetails(ctx, "desk-01", "", "", &inactive)
		if err != nil {
			t.Fatalf("UpdateDetails() error = %v", err)
		}
		if p.IsActive {
			t.Error("IsActive = true, want false after deactivation")
		}
		if p.Name != "Corner desk" {
			t.Errorf("Name = %q, want unchanged by active toggle", p.Name)
		}

		active := true
		p, err = tracker.UpdateDetails(ctx, "desk-01", "", "", &active)
		if err != nil {
			t.Fatalf("UpdateDetails() error = %v", err)
		}
		if !p.IsActive {
			t.Error("IsActive = false, want true after reactivation")
		}
	})

	t.Run("unknown pod", func(t *testing.T) {
		_, err := tracker.UpdateDetails(ctx, "ghost", "Name", "", nil)
		if !errors.Is(err, ErrPodNotFound) {
			t.Errorf("UpdateDetails() error = %v, want ErrPodNotFound", err)
		}
	})
}

func TestTrackerPassthroughs(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewTracker(repo)
	ctx := context.Background()

	for _, id := range []string{"desk-02", "desk-01"} {
		if _, err := tracker.Observe(ctx, id, Observation{Occupied: false}); err != nil {
			t.Fatalf("Observe(%s) error = %v", id, err)
		}
	}

	pods, err := tracker.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(pods) != 2 || pods[0].PodID != "desk-01" {
		t.Errorf("List() = %v, want 2 pods ordered by id", pods)
	}

	logs, err := tracker.RecentLogs(ctx, "desk-01", 10)
	if err != nil {
		t.Fatalf("RecentLogs() error = %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("expected 1 log, got %d", len(logs))
	}

	if _, err := tracker.Get(ctx, ""); !errors.Is(err, ErrInvalidPodID) {
		t.Errorf("Get(\"\") error = %v, want ErrInvalidPodID", err)
	}
	if _, err := tracker.RecentLogs(ctx, "", 0); !errors.Is(err, ErrInvalidPodID) {
		t.Errorf("RecentLogs(\"\") error = %v, want ErrInvalidPodID", err)
	}
}
