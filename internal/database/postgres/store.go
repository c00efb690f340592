package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/kozaktomas/faceauth/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Store persists the enrollment document across three tables.
// Descriptors are kept as DOUBLE PRECISION[] for lossless round trips and
// mirrored into a pgvector column for nearest-sample queries.
type Store struct {
	pool *Pool
}

// NewStore creates a persister on an open pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Load reads the whole document.
func (s *Store) Load(ctx context.Context) (*database.StoreDocument, error) {
	doc := &database.StoreDocument{Users: make(map[string]*database.UserRecord)}
	err := s.pool.QueryRow(ctx, `
		SELECT schema_version, accuracy_threshold, min_samples_per_user, max_samples_per_user
		FROM store_settings WHERE id = 1
	`).Scan(&doc.SchemaVersion, &doc.AccuracyThreshold, &doc.MinSamplesPerUser, &doc.MaxSamplesPerUser)
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading store settings: %w", err)
	}

	if err := s.loadUsers(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.loadSamples(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) loadUsers(ctx context.Context, doc *database.StoreDocument) error {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, enrollment_date, last_authentication, authentication_count
		FROM enrolled_users
	`)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID   string
			user     database.UserRecord
			lastAuth sql.NullTime
		)
		if err := rows.Scan(&userID, &user.EnrollmentDate, &lastAuth, &user.AuthenticationCount); err != nil {
			return fmt.Errorf("scanning user: %w", err)
		}
		user.EnrollmentDate = user.EnrollmentDate.UTC()
		if lastAuth.Valid {
			t := lastAuth.Time.UTC()
			user.LastAuthentication = &t
		}
		user.Samples = []database.SampleRecord{}
		doc.Users[userID] = &user
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating users: %w", err)
	}
	return nil
}

func (s *Store) loadSamples(ctx context.Context, doc *database.StoreDocument) error {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, sample_id, descriptor, confidence, captured_at
		FROM face_samples
		ORDER BY user_id, position
	`)
	if err != nil {
		return fmt.Errorf("loading samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID string
			sample database.SampleRecord
		)
		if err := rows.Scan(&userID, &sample.SampleID, pq.Array(&sample.Descriptor),
			&sample.Confidence, &sample.Timestamp); err != nil {
			return fmt.Errorf("scanning sample: %w", err)
		}
		sample.Timestamp = sample.Timestamp.UTC()
		user, ok := doc.Users[userID]
		if !ok {
			return fmt.Errorf("sample %s references unknown user %s", sample.SampleID, userID)
		}
		user.Samples = append(user.Samples, sample)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating samples: %w", err)
	}
	return nil
}

// Save replaces the whole document in one transaction.
func (s *Store) Save(ctx context.Context, doc *database.StoreDocument) error {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO store_settings (id, schema_version, accuracy_threshold, min_samples_per_user, max_samples_per_user, updated_at)
		VALUES (1, $1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			schema_version = EXCLUDED.schema_version,
			accuracy_threshold = EXCLUDED.accuracy_threshold,
			min_samples_per_user = EXCLUDED.min_samples_per_user,
			max_samples_per_user = EXCLUDED.max_samples_per_user,
			updated_at = NOW()
	`, doc.SchemaVersion, doc.AccuracyThreshold, doc.MinSamplesPerUser, doc.MaxSamplesPerUser); err != nil {
		return fmt.Errorf("saving store settings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM enrolled_users"); err != nil {
		return fmt.Errorf("clearing users: %w", err)
	}

	for userID, user := range doc.Users {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO enrolled_users (user_id, enrollment_date, last_authentication, authentication_count)
			VALUES ($1, $2, $3, $4)
		`, userID, user.EnrollmentDate, nullTime(user.LastAuthentication), user.AuthenticationCount); err != nil {
			return fmt.Errorf("saving user %s: %w", userID, err)
		}

		for i, sample := range user.Samples {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO face_samples (user_id, sample_id, position, descriptor, embedding, confidence, captured_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, userID, sample.SampleID, i, pq.Array(sample.Descriptor),
				pgvector.NewVector(toFloat32(sample.Descriptor)), sample.Confidence, sample.Timestamp); err != nil {
				return fmt.Errorf("saving sample %s: %w", sample.SampleID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing store: %w", err)
	}
	return nil
}

// NearestSamples returns up to k samples of the same dimension ordered by
// cosine distance to query.
func (s *Store) NearestSamples(ctx context.Context, query []float64, k int) ([]database.SampleHit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, sample_id, embedding <=> $1 AS distance
		FROM face_samples
		WHERE vector_dims(embedding) = $2
		ORDER BY distance, user_id, sample_id
		LIMIT $3
	`, pgvector.NewVector(toFloat32(query)), len(query), k)
	if err != nil {
		return nil, fmt.Errorf("searching samples: %w", err)
	}
	defer rows.Close()

	var hits []database.SampleHit
	for rows.Next() {
		var hit database.SampleHit
		if err := rows.Scan(&hit.UserID, &hit.SampleID, &hit.Distance); err != nil {
			return nil, fmt.Errorf("scanning sample hit: %w", err)
		}
		// Zero vectors have no direction.
		if math.IsNaN(hit.Distance) {
			hit.Distance = 2
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sample hits: %w", err)
	}
	return hits, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
