package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tashifkhan/MOOC-utils/internal/calendar"
	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/filter"
	"github.com/tashifkhan/MOOC-utils/internal/preferences"
	"github.com/tashifkhan/MOOC-utils/internal/storage"
)

func newSearchCmd() *cobra.Command {
	var (
		ncCodes    []string
		institutes []string
		sortFlag   string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the portal for courses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := parseCourseSort(sortFlag)
			if err != nil {
				return err
			}

			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			query := strings.Join(args, " ")
			if e.format == FormatText {
				fmt.Fprintf(e.out, "Searching for '%s'...\n", query)
			}

			courses, err := e.catalog.Search(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("searching courses: %w", err)
			}

			f := filter.NewFilter()
			f.NCCodes = ncCodes
			f.Institutes = institutes
			courses = f.ApplyCourses(courses)
			sortCourses(courses, order)

			if e.format == FormatJSON {
				return writeJSON(e.out, courses)
			}
			if !f.IsEmpty() {
				fmt.Fprintf(e.out, "Filters: %s\n", f)
			}
			writeCourses(e.out, courses)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ncCodes, "nc", nil, "Only courses from these National Coordinators (e.g. NPTEL,CEC)")
	cmd.Flags().StringSliceVar(&institutes, "institute", nil, "Only courses whose institute contains one of these")
	cmd.Flags().StringVar(&sortFlag, "sort", "", "Sort by: title, institute, nc or code (default: portal order)")

	return cmd
}

func newAnnouncementsCmd() *cobra.Command {
	var (
		since    string
		keywords []string
		icsPath  string
		sortFlag string
	)

	cmd := &cobra.Command{
		Use:   "announcements <course-code>",
		Short: "Show a course's announcements",
		Long: `Show a course's announcements. Announcements fetched within cache_ttl_minutes
are served from the local cache.

--since accepts '2026-01-01..2026-02-01', '2026-01-01..', 'last 7d', 'Jan 2026',
'Mar 1-15' or 'March'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]
			if !preferences.IsValidCourseCode(code) {
				return fmt.Errorf("invalid course code: %s", code)
			}
			order, err := parseAnnouncementSort(sortFlag)
			if err != nil {
				return err
			}

			f := filter.NewFilter()
			f.Keywords = keywords
			if since != "" {
				from, to, err := filter.ParseDateRange(since, time.Now())
				if err != nil {
					return err
				}
				f.DateFrom, f.DateTo = from, to
			}

			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			info := e.courseInfo(cmd, code)
			if e.format == FormatText && icsPath != "-" {
				fmt.Fprintf(e.out, "Fetching announcements for: %s (%s)...\n", info.Title, code)
			}

			anns, cached, err := e.catalog.Announcements(ctx, code)
			if err != nil {
				return fmt.Errorf("fetching announcements: %w", err)
			}
			anns = f.ApplyAnnouncements(anns)
			if order == SortByDate {
				course.SortAnnouncements(anns)
			}

			if icsPath != "" {
				return writeICS(e, icsPath, info, anns)
			}
			if e.format == FormatJSON {
				return writeJSON(e.out, struct {
					Code          string                `json:"code"`
					Cached        bool                  `json:"cached"`
					Announcements []course.Announcement `json:"announcements"`
				}{code, cached, anns})
			}
			if !f.IsEmpty() {
				fmt.Fprintf(e.out, "Filters: %s\n", f)
			}
			writeAnnouncements(e.out, info.Title, anns)
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "Only announcements dated within this range")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "Only announcements mentioning one of these words")
	cmd.Flags().StringVar(&icsPath, "ics", "", "Write dated announcements as an iCalendar file ('-' for stdout)")
	cmd.Flags().StringVar(&sortFlag, "sort", "page", "Sort by: page or date")

	return cmd
}

func writeICS(e *env, path string, info course.Course, anns []course.Announcement) error {
	ics := calendar.GenerateICS(info, anns, time.Now())
	if path == "-" {
		_, err := fmt.Fprint(e.out, ics)
		return err
	}
	if err := os.WriteFile(path, []byte(ics), 0644); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	fmt.Fprintf(e.out, "Wrote %d events to %s\n", len(calendar.Dated(anns)), path)
	return nil
}

func newCoursesCmd() *cobra.Command {
	var recent bool

	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List courses cached by previous searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()
			var list []storage.StoredCourse
			if recent {
				list, err = e.store.RecentlyUpdated(ctx, e.cfg.CacheTTL())
			} else {
				list, err = e.store.ListCourses(ctx)
			}
			if err != nil {
				return err
			}

			courses := make([]course.Course, len(list))
			for i, c := range list {
				courses[i] = c.Course
			}
			if e.format == FormatJSON {
				return writeJSON(e.out, list)
			}
			writeCourses(e.out, courses)
			return nil
		},
	}

	cmd.Flags().BoolVar(&recent, "recent", false, "Only courses refreshed within cache_ttl_minutes")
	return cmd
}

// courseInfo returns the cached course, or a stand-in titled by its code
func (e *env) courseInfo(cmd *cobra.Command, code string) course.Course {
	if stored, err := e.store.GetCourse(cmd.Context(), code); err == nil {
		return stored.Course
	}
	return course.Course{Title: code, Code: code}
}
