package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/faceauth/internal/database"
)

// Store persists the enrollment document in MariaDB.
// Descriptors are stored as JSON arrays, which round-trip float64 exactly.
type Store struct {
	pool *Pool
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Load reads the whole document.
func (s *Store) Load(ctx context.Context) (*database.StoreDocument, error) {
	doc := &database.StoreDocument{Users: make(map[string]*database.UserRecord)}
	err := s.pool.db.QueryRowContext(ctx, `
		SELECT schema_version, accuracy_threshold, min_samples_per_user, max_samples_per_user
		FROM faceauth_settings WHERE id = ?
	`, 1).Scan(&doc.SchemaVersion, &doc.AccuracyThreshold, &doc.MinSamplesPerUser, &doc.MaxSamplesPerUser)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading store settings: %w", err)
	}

	users, err := s.pool.db.QueryContext(ctx, `
		SELECT user_id, enrollment_date, last_authentication, authentication_count
		FROM faceauth_users WHERE 1 = ?
	`, 1)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	defer users.Close()

	for users.Next() {
		var (
			userID   string
			user     database.UserRecord
			lastAuth sql.NullTime
		)
		if err := users.Scan(&userID, &user.EnrollmentDate, &lastAuth, &user.AuthenticationCount); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		user.EnrollmentDate = user.EnrollmentDate.UTC()
		if lastAuth.Valid {
			t := lastAuth.Time.UTC()
			user.LastAuthentication = &t
		}
		user.Samples = []database.SampleRecord{}
		doc.Users[userID] = &user
	}
	if err := users.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	if err := s.loadSamples(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) loadSamples(ctx context.Context, doc *database.StoreDocument) error {
	// A bound parameter keeps the query on the binary protocol so DOUBLE values arrive exact.
	rows, err := s.pool.db.QueryContext(ctx, `
		SELECT user_id, sample_id, descriptor, confidence, captured_at
		FROM faceauth_samples WHERE 1 = ?
		ORDER BY user_id, position
	`, 1)
	if err != nil {
		return fmt.Errorf("loading samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID     string
			descriptor string
			sample     database.SampleRecord
		)
		if err := rows.Scan(&userID, &sample.SampleID, &descriptor, &sample.Confidence, &sample.Timestamp); err != nil {
			return fmt.Errorf("scanning sample: %w", err)
		}
		if err := json.Unmarshal([]byte(descriptor), &sample.Descriptor); err != nil {
			return fmt.Errorf("decoding descriptor of sample %s: %w", sample.SampleID, err)
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
	tx, err := s.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO faceauth_settings (id, schema_version, accuracy_threshold, min_samples_per_user, max_samples_per_user)
		VALUES (1, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			schema_version = VALUES(schema_version),
			accuracy_threshold = VALUES(accuracy_threshold),
			min_samples_per_user = VALUES(min_samples_per_user),
			max_samples_per_user = VALUES(max_samples_per_user)
	`, doc.SchemaVersion, doc.AccuracyThreshold, doc.MinSamplesPerUser, doc.MaxSamplesPerUser); err != nil {
		return fmt.Errorf("saving store settings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM faceauth_users"); err != nil {
		return fmt.Errorf("clearing users: %w", err)
	}

	for userID, user := range doc.Users {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO faceauth_users (user_id, enrollment_date, last_authentication, authentication_count)
			VALUES (?, ?, ?, ?)
		`, userID, user.EnrollmentDate, nullTime(user.LastAuthentication), user.AuthenticationCount); err != nil {
			return fmt.Errorf("saving user %s: %w", userID, err)
		}

		for i, sample := range user.Samples {
			descriptor, err := json.Marshal(sample.Descriptor)
			if err != nil {
				return fmt.Errorf("encoding descriptor of sample %s: %w", sample.SampleID, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO faceauth_samples (user_id, sample_id, position, descriptor, confidence, captured_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, userID, sample.SampleID, i, string(descriptor), sample.Confidence, sample.Timestamp); err != nil {
				return fmt.Errorf("saving sample %s: %w", sample.SampleID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing store: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
