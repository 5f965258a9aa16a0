package pod

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Log query limits.
const (
	// DefaultLogLimit is applied when a caller requests logs without a limit.
	DefaultLogLimit = 100

	// MaxLogLimit caps a single history query.
	MaxLogLimit = 1000
)

// Repository defines the interface for pod persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Upsert inserts the pod or, if a row with the same external PodID
	// already exists, overwrites its snapshot in a single statement.
	// The returned pod carries the database ID and original CreatedAt.
	Upsert(ctx context.Context, p *Pod) (*Pod, error)

	// AppendLog inserts one observation into the history table.
	AppendLog(ctx context.Context, log *OccupantLog) error

	// GetByPodID retrieves a pod by its external identifier.
	// Returns ErrPodNotFound if the pod does not exist.
	GetByPodID(ctx context.Context, podID string) (*Pod, error)

	// List retrieves all pods ordered by external identifier.
	List(ctx context.Context) ([]Pod, error)

	// RecentLogs retrieves the newest log entries for a pod, newest first.
	// A limit of 0 applies DefaultLogLimit; limits above MaxLogLimit are
	// clamped. Returns ErrPodNotFound if the pod does not exist.
	RecentLogs(ctx context.Context, podID string, limit int) ([]OccupantLog, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const podColumns = `id, pod_id, name, location, is_active, is_occupied, last_occupant_id,
		last_mmwave_detection, last_ble_detection, last_rssi,
		static_distance, motion_distance, existence_energy,
		motion_energy, motion_speed, body_movement,
		last_updated, created_at, updated_at`

// Upsert inserts or overwrites a pod snapshot keyed on pod_id.
//
// The conflict clause makes find-or-create atomic: two concurrent first
// observations of the same pod produce exactly one row, with the loser
// degrading to an update. created_at is preserved on conflict.
func (r *SQLiteRepository) Upsert(ctx context.Context, p *Pod) (*Pod, error) {
	if p.PodID == "" {
		return nil, ErrInvalidPodID
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	query := `
		INSERT INTO pods (
			pod_id, name, location, is_active, is_occupied, last_occupant_id,
			last_mmwave_detection, last_ble_detection, last_rssi,
			static_distance, motion_distance, existence_energy,
			motion_energy, motion_speed, body_movement,
			last_updated, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pod_id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			is_active = excluded.is_active,
			is_occupied = excluded.is_occupied,
			last_occupant_id = excluded.last_occupant_id,
			last_mmwave_detection = excluded.last_mmwave_detection,
			last_ble_detection = excluded.last_ble_detection,
			last_rssi = excluded.last_rssi,
			static_distance = excluded.static_distance,
			motion_distance = excluded.motion_distance,
			existence_energy = excluded.existence_energy,
			motion_energy = excluded.motion_energy,
			motion_speed = excluded.motion_speed,
			body_movement = excluded.body_movement,
			last_updated = excluded.last_updated,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		p.PodID,
		p.Name,
		p.Location,
		boolToInt(p.IsActive),
		boolToInt(p.IsOccupied),
		nullableString(p.LastOccupantID),
		boolToInt(p.LastMmwaveDetection),
		boolToInt(p.LastBleDetection),
		nullableInt(p.LastRSSI),
		nullableFloat(p.StaticDistance),
		nullableFloat(p.MotionDistance),
		nullableFloat(p.ExistenceEnergy),
		nullableFloat(p.MotionEnergy),
		nullableFloat(p.MotionSpeed),
		nullableFloat(p.BodyMovement),
		p.LastUpdated.UTC().Format(time.RFC3339),
		p.CreatedAt.UTC().Format(time.RFC3339),
		p.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("upserting pod: %w", err)
	}

	// Read the row back for the database ID and original created_at.
	return r.GetByPodID(ctx, p.PodID)
}

// AppendLog inserts one observation into the history table.
func (r *SQLiteRepository) AppendLog(ctx context.Context, log *OccupantLog) error {
	query := `
		INSERT INTO occupant_logs (
			pod_id, pod_external_id, occupant_id, is_occupied,
			mmwave_detection, ble_detection, rssi,
			static_distance, motion_distance, existence_energy,
			motion_energy, motion_speed, body_movement, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		log.PodID,
		log.PodExternalID,
		nullableString(log.OccupantID),
		boolToInt(log.IsOccupied),
		boolToInt(log.MmwaveDetected),
		boolToInt(log.BleDetected),
		nullableInt(log.RSSI),
		nullableFloat(log.StaticDistance),
		nullableFloat(log.MotionDistance),
		nullableFloat(log.ExistenceEnergy),
		nullableFloat(log.MotionEnergy),
		nullableFloat(log.MotionSpeed),
		nullableFloat(log.BodyMovement),
		log.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting occupant log: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		log.ID = id
	}

	return nil
}

// GetByPodID retrieves a pod by its external identifier.
func (r *SQLiteRepository) GetByPodID(ctx context.Context, podID string) (*Pod, error) {
	query := fmt.Sprintf("SELECT %s FROM pods WHERE pod_id = ?", podColumns)

	row := r.db.QueryRowContext(ctx, query, podID)
	p, err := scanPod(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPodNotFound
		}
		return nil, fmt.Errorf("querying pod by pod_id: %w", err)
	}
	return p, nil
}

// List retrieves all pods ordered by external identifier.
func (r *SQLiteRepository) List(ctx context.Context) ([]Pod, error) {
	query := fmt.Sprintf("SELECT %s FROM pods ORDER BY pod_id", podColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying pods: %w", err)
	}
	defer rows.Close()

	var pods []Pod
	for rows.Next() {
		p, err := scanPod(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pod: %w", err)
		}
		pods = append(pods, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pods: %w", err)
	}
	return pods, nil
}

// RecentLogs retrieves the newest log entries for a pod, newest first.
func (r *SQLiteRepository) RecentLogs(ctx context.Context, podID string, limit int) ([]OccupantLog, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if limit == 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}

	// Resolve the internal key; the logs table is queried by it so the
	// (pod_id, timestamp) index applies.
	p, err := r.GetByPodID(ctx, podID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, pod_id, pod_external_id, occupant_id, is_occupied,
			mmwave_detection, ble_detection, rssi,
			static_distance, motion_distance, existence_energy,
			motion_energy, motion_speed, body_movement, timestamp
		FROM occupant_logs
		WHERE pod_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, p.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying occupant logs: %w", err)
	}
	defer rows.Close()

	var logs []OccupantLog
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning occupant log: %w", err)
		}
		logs = append(logs, *log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating occupant logs: %w", err)
	}
	return logs, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPod scans a row or rows result into a Pod.
func scanPod(scanner rowScanner) (*Pod, error) {
	var p Pod
	var occupantID sql.NullString
	var rssi sql.NullInt64
	var staticDistance, motionDistance, existenceEnergy sql.NullFloat64
	var motionEnergy, motionSpeed, bodyMovement sql.NullFloat64
	var isActive, isOccupied, mmwave, ble int
	var lastUpdated, createdAt, updatedAt string

	err := scanner.Scan(
		&p.ID,
		&p.PodID,
		&p.Name,
		&p.Location,
		&isActive,
		&isOccupied,
		&occupantID,
		&mmwave,
		&ble,
		&rssi,
		&staticDistance,
		&motionDistance,
		&existenceEnergy,
		&motionEnergy,
		&motionSpeed,
		&bodyMovement,
		&lastUpdated,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.IsActive = isActive != 0
	p.IsOccupied = isOccupied != 0
	p.LastMmwaveDetection = mmwave != 0
	p.LastBleDetection = ble != 0

	if occupantID.Valid {
		p.LastOccupantID = &occupantID.String
	}
	if rssi.Valid {
		v := int(rssi.Int64)
		p.LastRSSI = &v
	}
	p.StaticDistance = floatPtr(staticDistance)
	p.MotionDistance = floatPtr(motionDistance)
	p.ExistenceEnergy = floatPtr(existenceEnergy)
	p.MotionEnergy = floatPtr(motionEnergy)
	p.MotionSpeed = floatPtr(motionSpeed)
	p.BodyMovement = floatPtr(bodyMovement)

	var parseErr error
	p.LastUpdated, parseErr = time.Parse(time.RFC3339, lastUpdated)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing last_updated: %w", parseErr)
	}
	p.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	p.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &p, nil
}

// scanLog scans a row or rows result into an OccupantLog.
func scanLog(scanner rowScanner) (*OccupantLog, error) {
	var l OccupantLog
	var occupantID sql.NullString
	var rssi sql.NullInt64
	var staticDistance, motionDistance, existenceEnergy sql.NullFloat64
	var motionEnergy, motionSpeed, bodyMovement sql.NullFloat64
	var isOccupied, mmwave, ble int
	var timestamp string

	err := scanner.Scan(
		&l.ID,
		&l.PodID,
		&l.PodExternalID,
		&occupantID,
		&isOccupied,
		&mmwave,
		&ble,
		&rssi,
		&staticDistance,
		&motionDistance,
		&existenceEnergy,
		&motionEnergy,
		&motionSpeed,
		&bodyMovement,
		&timestamp,
	)
	if err != nil {
		return nil, err
	}

	l.IsOccupied = isOccupied != 0
	l.MmwaveDetected = mmwave != 0
	l.BleDetected = ble != 0

	if occupantID.Valid {
		l.OccupantID = &occupantID.String
	}
	if rssi.Valid {
		v := int(rssi.Int64)
		l.RSSI = &v
	}
	l.StaticDistance = floatPtr(staticDistance)
	l.MotionDistance = floatPtr(motionDistance)
	l.ExistenceEnergy = floatPtr(existenceEnergy)
	l.MotionEnergy = floatPtr(motionEnergy)
	l.MotionSpeed = floatPtr(motionSpeed)
	l.BodyMovement = floatPtr(bodyMovement)

	var parseErr error
	l.Timestamp, parseErr = time.Parse(time.RFC3339, timestamp)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", parseErr)
	}

	return &l, nil
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullableInt returns a sql.NullInt64 for optional int pointers.
func nullableInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// nullableFloat returns a sql.NullFloat64 for optional float pointers.
func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// floatPtr converts a sql.NullFloat64 back to an optional pointer.
func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
