// Package catalog keeps the local course and announcement cache in step with the
// portal. It sits between the scraper and storage and is shared by the CLI, the
// watcher and the REST API.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/logger"
	"github.com/tashifkhan/MOOC-utils/internal/storage"
)

// Source fetches live data from the portal; *scraper.Scraper satisfies it
type Source interface {
	Search(ctx context.Context, query string) ([]course.Course, error)
	FetchAnnouncements(ctx context.Context, code string) ([]course.Announcement, error)
}

// Catalog combines a live source with the local store
type Catalog struct {
	src   Source
	store *storage.Storage
	ttl   time.Duration
	now   func() time.Time
}

// New creates a catalog. Announcements scraped within ttl are served from the
// store; a zero ttl always scrapes.
func New(src Source, store *storage.Storage, ttl time.Duration) *Catalog {
	return &Catalog{src: src, store: store, ttl: ttl, now: time.Now}
}

// Store returns the underlying store
func (c *Catalog) Store() *storage.Storage {
	return c.store
}

// Search scrapes the portal and caches every course it returns
func (c *Catalog) Search(ctx context.Context, query string) ([]course.Course, error) {
	courses, err := c.src.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := c.store.UpsertCourses(ctx, courses); err != nil {
		return nil, fmt.Errorf("caching courses: %w", err)
	}
	return courses, nil
}

// Announcements returns a course's announcements. The boolean reports whether
// they came from the cache rather than a fresh scrape.
func (c *Catalog) Announcements(ctx context.Context, code string) ([]course.Announcement, bool, error) {
	if c.ttl > 0 {
		fetched, ok, err := c.store.AnnouncementsFetchedAt(ctx, code)
		if err != nil {
			return nil, false, err
		}
		if ok && c.now().Sub(fetched) < c.ttl {
			stored, err := c.store.ListAnnouncements(ctx, code)
			if err != nil {
				return nil, false, err
			}
			return unwrap(stored), true, nil
		}
	}

	anns, _, err := c.refresh(ctx, code)
	if err != nil {
		return nil, false, err
	}
	return anns, false, nil
}

func (c *Catalog) refresh(ctx context.Context, code string) ([]course.Announcement, []course.Announcement, error) {
	anns, err := c.src.FetchAnnouncements(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	inserted, err := c.store.UpsertAnnouncements(ctx, code, anns)
	if err != nil {
		return nil, nil, fmt.Errorf("caching announcements: %w", err)
	}
	return anns, unwrap(inserted), nil
}

// Check scrapes every course in codes and returns the announcements that were not
// stored before, grouped by course. A course that fails is logged and skipped; the
// returned error joins all failures.
func (c *Catalog) Check(ctx context.Context, codes []string) ([]course.Update, error) {
	var (
		updates []course.Update
		errs    []error
	)

	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return updates, errors.Join(append(errs, err)...)
		}

		_, fresh, err := c.refresh(ctx, code)
		if err != nil {
			logger.Warn("Checking course failed", logger.Fields{"code": code, "error": err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", code, err))
			continue
		}

		logger.Debug("Checked course", logger.Fields{"code": code, "new": len(fresh)})
		if len(fresh) == 0 {
			continue
		}

		info, err := c.lookup(ctx, code)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		updates = append(updates, course.Update{Course: info, Announcements: fresh})
	}

	return updates, errors.Join(errs...)
}

// lookup returns the cached course, or a placeholder carrying only the code when
// the course was never seen in a search
func (c *Catalog) lookup(ctx context.Context, code string) (course.Course, error) {
	stored, err := c.store.GetCourse(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return course.Course{
			Title:      code,
			Code:       code,
			Instructor: course.UnknownInstructor,
			Institute:  course.UnknownInstitute,
			NCCode:     course.UnknownNC,
		}, nil
	}
	if err != nil {
		return course.Course{}, err
	}
	return stored.Course, nil
}

func unwrap(stored []storage.StoredAnnouncement) []course.Announcement {
	anns := make([]course.Announcement, len(stored))
	for i, s := range stored {
		anns[i] = s.Announcement
	}
	return anns
}
