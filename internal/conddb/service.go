package conddb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/tkal/internal/alignment"
	"github.com/banshee-data/tkal/internal/detid"
	"github.com/banshee-data/tkal/internal/monitoring"
	"github.com/banshee-data/tkal/internal/timeutil"
)

var (
	ErrRecordNotConfigured = errors.New("record not configured")
	ErrNoIOV               = errors.New("no IOV covers the requested time")
	ErrTagConflict         = errors.New("tag already bound to another record or time type")
)

const (
	objectAlignments      = "Alignments"
	objectAlignmentErrors = "AlignmentErrorsExtended"
)

// rotation and APE column names, in storage order.
var (
	rotCols = func() []string {
		var c []string
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				c = append(c, fmt.Sprintf("r%d%d", i, j))
			}
		}
		return c
	}()
	apeCols = func() []string {
		c := make([]string, apeValues)
		for k := range c {
			c[k] = fmt.Sprintf("e%02d", k)
		}
		return c
	}()
)

// apeValues is the size of the packed upper triangle of a 6x6 matrix.
const apeValues = alignment.APEDim * (alignment.APEDim + 1) / 2

// IOV is one validity interval start of a tag.
type IOV struct {
	Since     uint64
	PayloadID uuid.UUID
	Inserted  time.Time
}

// Service reads and writes alignment payloads. toPut maps record names to
// the tags they are stored under.
type Service struct {
	db       *DB
	timeType TimeType
	toPut    map[string]string
	clock    timeutil.Clock
}

var (
	_ alignment.RecordWriter = (*Service)(nil)
	_ alignment.RecordReader = (*Service)(nil)
)

// NewService returns a service over db. Records absent from toPut are
// rejected with ErrRecordNotConfigured.
func NewService(db *DB, timeType TimeType, toPut map[string]string) *Service {
	m := make(map[string]string, len(toPut))
	for k, v := range toPut {
		m[k] = v
	}
	return &Service{db: db, timeType: timeType, toPut: m, clock: timeutil.RealClock{}}
}

// WithClock replaces the clock used to stamp insertion times.
func (s *Service) WithClock(c timeutil.Clock) *Service {
	s.clock = c
	return s
}

// IsAvailable reports whether the database answers.
func (s *Service) IsAvailable() bool {
	if s == nil || s.db == nil {
		return false
	}
	return s.db.Ping() == nil
}

// TimeType returns the time type tags are created with.
func (s *Service) TimeType() TimeType { return s.timeType }

func (s *Service) tagFor(record string) (string, error) {
	tag, ok := s.toPut[record]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRecordNotConfigured, record)
	}
	return tag, nil
}

func sinceArg(since uint64) (int64, error) {
	if since > math.MaxInt64 {
		return 0, fmt.Errorf("since %d out of range", since)
	}
	return int64(since), nil
}

// WriteAlignments stores a as a new payload of the record's tag, valid from
// since. A payload already registered at since is superseded.
func (s *Service) WriteAlignments(ctx context.Context, record string, since uint64, a *alignment.Alignments) error {
	return s.writePayload(ctx, record, since, objectAlignments, func(tx *sql.Tx, id string) error {
		cols := append([]string{"payload_id", "seq", "raw_id", "x", "y", "z"}, rotCols...)
		stmt, err := tx.PrepareContext(ctx, insertSQL("align_transforms", cols))
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := make([]interface{}, len(cols))
		for seq, tr := range a.Transforms {
			if r, c := tr.Rotation.Dims(); r != 3 || c != 3 {
				return fmt.Errorf("transform %d: rotation is %dx%d", seq, r, c)
			}
			args[0], args[1], args[2] = id, seq, int64(tr.RawID)
			args[3], args[4], args[5] = tr.Translation.X, tr.Translation.Y, tr.Translation.Z
			for i := 0; i < 9; i++ {
				args[6+i] = tr.Rotation.At(i/3, i%3)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert transform %d: %w", seq, err)
			}
		}
		return nil
	})
}

// WriteAlignmentErrors stores e as a new payload of the record's tag, valid
// from since.
func (s *Service) WriteAlignmentErrors(ctx context.Context, record string, since uint64, e *alignment.AlignmentErrors) error {
	return s.writePayload(ctx, record, since, objectAlignmentErrors, func(tx *sql.Tx, id string) error {
		cols := append([]string{"payload_id", "seq", "raw_id"}, apeCols...)
		stmt, err := tx.PrepareContext(ctx, insertSQL("align_errors", cols))
		if err != nil {
			return err
		}
		defer stmt.Close()

		args := make([]interface{}, len(cols))
		for seq, te := range e.Errors {
			if te.Matrix.SymmetricDim() != alignment.APEDim {
				return fmt.Errorf("error %d: APE is %dx%d", seq, te.Matrix.SymmetricDim(), te.Matrix.SymmetricDim())
			}
			args[0], args[1], args[2] = id, seq, int64(te.RawID)
			k := 3
			for i := 0; i < alignment.APEDim; i++ {
				for j := i; j < alignment.APEDim; j++ {
					args[k] = te.Matrix.At(i, j)
					k++
				}
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert error %d: %w", seq, err)
			}
		}
		return nil
	})
}

func (s *Service) writePayload(ctx context.Context, record string, since uint64, objectType string, fill func(*sql.Tx, string) error) error {
	tag, err := s.tagFor(record)
	if err != nil {
		return err
	}
	sinceVal, err := sinceArg(since)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.clock.Now().UnixNano()
	if err := s.ensureTag(ctx, tx, tag, record, now); err != nil {
		return err
	}

	payloadID := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payloads (payload_id, object_type, created_unix_nanos) VALUES (?, ?, ?)`,
		payloadID, objectType, now); err != nil {
		return fmt.Errorf("failed to insert payload: %w", err)
	}
	if err := fill(tx, payloadID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO iovs (tag, since, payload_id, inserted_unix_nanos) VALUES (?, ?, ?, ?)`,
		tag, sinceVal, payloadID, now); err != nil {
		return fmt.Errorf("failed to insert iov: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", record, err)
	}
	monitoring.Logf("wrote %s payload %s to tag %s since %d", record, payloadID, tag, since)
	return nil
}

func (s *Service) ensureTag(ctx context.Context, tx *sql.Tx, tag, record string, now int64) error {
	var gotRecord, gotType string
	err := tx.QueryRowContext(ctx, `SELECT record, time_type FROM tags WHERE name = ?`, tag).Scan(&gotRecord, &gotType)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tags (name, record, time_type, created_unix_nanos) VALUES (?, ?, ?, ?)`,
			tag, record, string(s.timeType), now)
		if err != nil {
			return fmt.Errorf("failed to create tag %s: %w", tag, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up tag %s: %w", tag, err)
	case gotRecord != record || TimeType(gotType) != s.timeType:
		return fmt.Errorf("%w: %s holds %s/%s", ErrTagConflict, tag, gotRecord, gotType)
	}
	return nil
}

// payloadFor returns the payload of the record's tag with the greatest since
// not after run.
func (s *Service) payloadFor(ctx context.Context, record string, run uint64) (string, error) {
	tag, err := s.tagFor(record)
	if err != nil {
		return "", err
	}
	runVal, err := sinceArg(run)
	if err != nil {
		return "", err
	}
	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT payload_id FROM iovs WHERE tag = ? AND since <= ? ORDER BY since DESC LIMIT 1`,
		tag, runVal).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: tag %s at %d", ErrNoIOV, tag, run)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query iovs: %w", err)
	}
	return id, nil
}

// Alignments loads the transforms valid at run.
func (s *Service) Alignments(ctx context.Context, record string, run uint64) (*alignment.Alignments, error) {
	id, err := s.payloadFor(ctx, record, run)
	if err != nil {
		return nil, err
	}
	cols := append([]string{"raw_id", "x", "y", "z"}, rotCols...)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(cols, ", ")+` FROM align_transforms WHERE payload_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transforms: %w", err)
	}
	defer rows.Close()

	out := &alignment.Alignments{}
	for rows.Next() {
		var raw int64
		var pos r3.Vec
		rot := make([]float64, 9)
		dest := []interface{}{&raw, &pos.X, &pos.Y, &pos.Z}
		for i := range rot {
			dest = append(dest, &rot[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan transform: %w", err)
		}
		out.Transforms = append(out.Transforms, alignment.Transform{
			RawID:       detid.DetID(raw),
			Translation: pos,
			Rotation:    mat.NewDense(3, 3, rot),
		})
	}
	return out, rows.Err()
}

// AlignmentErrors loads the APEs valid at run.
func (s *Service) AlignmentErrors(ctx context.Context, record string, run uint64) (*alignment.AlignmentErrors, error) {
	id, err := s.payloadFor(ctx, record, run)
	if err != nil {
		return nil, err
	}
	cols := append([]string{"raw_id"}, apeCols...)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strings.Join(cols, ", ")+` FROM align_errors WHERE payload_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query errors: %w", err)
	}
	defer rows.Close()

	out := &alignment.AlignmentErrors{}
	for rows.Next() {
		var raw int64
		packed := make([]float64, apeValues)
		dest := []interface{}{&raw}
		for i := range packed {
			dest = append(dest, &packed[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan error: %w", err)
		}
		m := mat.NewSymDense(alignment.APEDim, nil)
		k := 0
		for i := 0; i < alignment.APEDim; i++ {
			for j := i; j < alignment.APEDim; j++ {
				m.SetSym(i, j, packed[k])
				k++
			}
		}
		out.Errors = append(out.Errors, alignment.TransformError{RawID: detid.DetID(raw), Matrix: m})
	}
	return out, rows.Err()
}

// IOVs lists the intervals of tag in since order.
func (s *Service) IOVs(ctx context.Context, tag string) ([]IOV, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT since, payload_id, inserted_unix_nanos FROM iovs WHERE tag = ? ORDER BY since`, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to query iovs: %w", err)
	}
	defer rows.Close()

	var out []IOV
	for rows.Next() {
		var since, ins int64
		var id string
		if err := rows.Scan(&since, &id, &ins); err != nil {
			return nil, err
		}
		pid, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("bad payload id %q: %w", id, err)
		}
		out = append(out, IOV{Since: uint64(since), PayloadID: pid, Inserted: time.Unix(0, ins)})
	}
	return out, rows.Err()
}

func insertSQL(table string, cols []string) string {
	ph := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), ph)
}
