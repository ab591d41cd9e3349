package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tashifkhan/MOOC-utils/internal/course"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// DBFile is the database file name inside the data directory
const DBFile = "mooc.db"

// ErrNotFound is returned when a course or notification does not exist
var ErrNotFound = errors.New("not found")

// Storage handles persistence of courses, announcements and notifications
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// StoredCourse is a course row with its bookkeeping timestamps
type StoredCourse struct {
	course.Course
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoredAnnouncement is an announcement row tied to its course
type StoredAnnouncement struct {
	course.Announcement
	ID         string    `json:"id"`
	CourseCode string    `json:"course_code"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Notification records one announcement delivered to one user over one channel
type Notification struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"user_id"`
	CourseCode        string    `json:"course_code"`
	AnnouncementID    string    `json:"announcement_id"`
	AnnouncementTitle string    `json:"announcement_title,omitempty"`
	Channel           string    `json:"channel"`
	SentAt            time.Time `json:"sent_at"`
	Read              bool      `json:"is_read"`
}

// Open creates the data directory if needed and opens the database inside it
func Open(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := OpenDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenDB wraps an already opened database and applies the schema
func OpenDB(db *sql.DB) (*Storage, error) {
	// SQLite allows one writer; a single connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Storage{db: db, now: time.Now}, nil
}

// Close closes the underlying database
func (s *Storage) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UpsertCourses inserts new courses and refreshes the fields of known ones
func (s *Storage) UpsertCourses(ctx context.Context, courses []course.Course) error {
	if len(courses) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := toMillis(s.now())
	for _, c := range courses {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO courses (code, title, url, instructor, institute, nc_code, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (code) DO UPDATE SET
				title = excluded.title,
				url = excluded.url,
				instructor = excluded.instructor,
				institute = excluded.institute,
				nc_code = excluded.nc_code,
				updated_at = excluded.updated_at`,
			c.Code, c.Title, c.URL, c.Instructor, c.Institute, c.NCCode, now, now)
		if err != nil {
			return fmt.Errorf("upserting course %s: %w", c.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing courses: %w", err)
	}
	return nil
}

const courseColumns = `code, title, url, instructor, institute, nc_code, created_at, updated_at`

func scanCourse(row interface{ Scan(...any) error }) (StoredCourse, error) {
	var c StoredCourse
	var created, updated int64
	err := row.Scan(&c.Code, &c.Title, &c.URL, &c.Instructor, &c.Institute, &c.NCCode, &created, &updated)
	if err != nil {
		return StoredCourse{}, err
	}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return c, nil
}

func (s *Storage) queryCourses(ctx context.Context, query string, args ...any) ([]StoredCourse, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying courses: %w", err)
	}
	defer rows.Close()

	courses := make([]StoredCourse, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// ListCourses returns every cached course ordered by title
func (s *Storage) ListCourses(ctx context.Context) ([]StoredCourse, error) {
	return s.queryCourses(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY title, code`)
}

// RecentlyUpdated returns courses refreshed within ttl, ordered by title
func (s *Storage) RecentlyUpdated(ctx context.Context, ttl time.Duration) ([]StoredCourse, error) {
	cutoff := toMillis(s.now().Add(-ttl))
	return s.queryCourses(ctx, `SELECT `+courseColumns+` FROM courses WHERE updated_at >= ? ORDER BY title, code`, cutoff)
}

// GetCourse returns the cached course with the given code
func (s *Storage) GetCourse(ctx context.Context, code string) (StoredCourse, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE code = ?`, code)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredCourse{}, fmt.Errorf("course %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return StoredCourse{}, fmt.Errorf("getting course %s: %w", code, err)
	}
	return c, nil
}

// KnownAnnouncementIDs returns the IDs of every stored announcement of a course
func (s *Storage) KnownAnnouncementIDs(ctx context.Context, code string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM announcements WHERE course_code = ?`, code)
	if err != nil {
		return nil, fmt.Errorf("querying announcement ids: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning announcement id: %w", err)
		}
		known[id] = true
	}
	return known, rows.Err()
}

// UpsertAnnouncements stores a freshly scraped announcements page for a course.
// Announcements not seen before are inserted and returned; known ones have their
// content refreshed when it changed. The course's fetch time is recorded either way.
func (s *Storage) UpsertAnnouncements(ctx context.Context, code string, anns []course.Announcement) ([]StoredAnnouncement, error) {
	known, err := s.KnownAnnouncementIDs(ctx, code)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	fresh := course.Diff(code, known, anns)
	inserted := make([]StoredAnnouncement, 0, len(fresh))
	for _, a := range fresh {
		id := course.GenerateID(code, a)
		// The same notice can appear twice on one page, and rows written under an
		// older ID scheme still hold the (course, title, date) key
		res, err := tx.ExecContext(ctx, `
			INSERT INTO announcements (id, course_code, title, date, content, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`,
			id, code, a.Title, a.Date, a.Content, toMillis(now))
		if err != nil {
			return nil, fmt.Errorf("inserting announcement %q: %w", a.Title, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		inserted = append(inserted, StoredAnnouncement{
			Announcement: a,
			ID:           id,
			CourseCode:   code,
			FetchedAt:    fromMillis(toMillis(now)),
		})
	}

	for _, a := range anns {
		id := course.GenerateID(code, a)
		if !known[id] {
			continue
		}
		_, err := tx.ExecContext(ctx, `UPDATE announcements SET content = ? WHERE id = ? AND content <> ?`,
			a.Content, id, a.Content)
		if err != nil {
			return nil, fmt.Errorf("updating announcement %q: %w", a.Title, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO announcement_fetches (course_code, fetched_at) VALUES (?, ?)
		ON CONFLICT (course_code) DO UPDATE SET fetched_at = excluded.fetched_at`,
		code, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("recording fetch time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing announcements: %w", err)
	}
	return inserted, nil
}

// ListAnnouncements returns a course's stored announcements, most recently
// fetched first and in page order within one fetch
func (s *Storage) ListAnnouncements(ctx context.Context, code string) ([]StoredAnnouncement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, course_code, title, date, content, fetched_at
		FROM announcements
		WHERE course_code = ?
		ORDER BY fetched_at DESC, rowid ASC`, code)
	if err != nil {
		return nil, fmt.Errorf("querying announcements: %w", err)
	}
	defer rows.Close()

	anns := make([]StoredAnnouncement, 0)
	for rows.Next() {
		var (
			a       StoredAnnouncement
			fetched int64
		)
		if err := rows.Scan(&a.ID, &a.CourseCode, &a.Title, &a.Date, &a.Content, &fetched); err != nil {
			return nil, fmt.Errorf("scanning announcement: %w", err)
		}
		a.FetchedAt = fromMillis(fetched)
		anns = append(anns, a)
	}
	return anns, rows.Err()
}

// AnnouncementsFetchedAt returns when a course's announcements were last scraped.
// The boolean is false when they never were.
func (s *Storage) AnnouncementsFetchedAt(ctx context.Context, code string) (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT fetched_at FROM announcement_fetches WHERE course_code = ?`, code).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("getting fetch time: %w", err)
	}
	return fromMillis(ms), true, nil
}

// RecordNotification appends a delivery to the notification log and returns its ID.
// A zero SentAt is stamped with the current time. A pending retry of the same
// delivery is cleared.
func (s *Storage) RecordNotification(ctx context.Context, n Notification) (int64, error) {
	if n.SentAt.IsZero() {
		n.SentAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (user_id, course_code, announcement_id, channel, sent_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.UserID, n.CourseCode, n.AnnouncementID, n.Channel, toMillis(n.SentAt), boolToInt(n.Read))
	if err != nil {
		return 0, fmt.Errorf("recording notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM pending_deliveries WHERE user_id = ? AND channel = ? AND announcement_id = ?`,
		n.UserID, n.Channel, n.AnnouncementID)
	if err != nil {
		return 0, fmt.Errorf("clearing pending delivery: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing notification: %w", err)
	}
	return id, nil
}

// PendingDelivery is an announcement whose delivery to a user failed
type PendingDelivery struct {
	UserID       string              `json:"user_id"`
	Channel      string              `json:"channel"`
	Course       course.Course       `json:"course"`
	Announcement course.Announcement `json:"announcement"`
	Attempts     int                 `json:"attempts"`
	LastError    string              `json:"last_error"`
}

// RecordFailedDelivery queues a delivery for retry, counting repeated failures
func (s *Storage) RecordFailedDelivery(ctx context.Context, n Notification, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_deliveries (user_id, channel, course_code, announcement_id, attempts, last_error, failed_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (user_id, channel, announcement_id) DO UPDATE SET
			attempts = attempts + 1,
			last_error = excluded.last_error,
			failed_at = excluded.failed_at`,
		n.UserID, n.Channel, n.CourseCode, n.AnnouncementID, msg, toMillis(s.now()))
	if err != nil {
		return fmt.Errorf("recording failed delivery: %w", err)
	}
	return nil
}

// PendingDeliveries returns queued deliveries that failed fewer than maxAttempts
// times, grouped by user, channel and course in page order. Courses never cached
// by a search carry their code as title.
func (s *Storage) PendingDeliveries(ctx context.Context, maxAttempts int) ([]PendingDelivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.user_id, p.channel, p.course_code, p.attempts, p.last_error,
			a.title, a.date, a.content,
			c.title, c.url, c.instructor, c.institute, c.nc_code
		FROM pending_deliveries p
		JOIN announcements a ON a.id = p.announcement_id
		LEFT JOIN courses c ON c.code = p.course_code
		WHERE p.attempts < ?
		ORDER BY p.user_id, p.channel, p.course_code, a.fetched_at, a.rowid`, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("querying pending deliveries: %w", err)
	}
	defer rows.Close()

	list := make([]PendingDelivery, 0)
	for rows.Next() {
		var (
			p                                 PendingDelivery
			title, link, instructor, inst, nc sql.NullString
		)
		err := rows.Scan(&p.UserID, &p.Channel, &p.Course.Code, &p.Attempts, &p.LastError,
			&p.Announcement.Title, &p.Announcement.Date, &p.Announcement.Content,
			&title, &link, &instructor, &inst, &nc)
		if err != nil {
			return nil, fmt.Errorf("scanning pending delivery: %w", err)
		}
		if title.Valid {
			p.Course.Title, p.Course.URL = title.String, link.String
			p.Course.Instructor, p.Course.Institute, p.Course.NCCode = instructor.String, inst.String, nc.String
		} else {
			p.Course.Title = p.Course.Code
			p.Course.Instructor = course.UnknownInstructor
			p.Course.Institute = course.UnknownInstitute
			p.Course.NCCode = course.UnknownNC
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// ListNotifications returns a user's notifications, newest first
func (s *Storage) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.user_id, n.course_code, n.announcement_id, COALESCE(a.title, ''),
			n.channel, n.sent_at, n.is_read
		FROM notifications n
		LEFT JOIN announcements a ON a.id = n.announcement_id
		WHERE n.user_id = ?
		ORDER BY n.sent_at DESC, n.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	list := make([]Notification, 0)
	for rows.Next() {
		var (
			n    Notification
			sent int64
		)
		err := rows.Scan(&n.ID, &n.UserID, &n.CourseCode, &n.AnnouncementID, &n.AnnouncementTitle,
			&n.Channel, &sent, &n.Read)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		n.SentAt = fromMillis(sent)
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkRead flags a notification as read
func (s *Storage) MarkRead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	return nil
}
