package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tashifkhan/MOOC-utils/internal/calendar"
	"github.com/tashifkhan/MOOC-utils/internal/course"
	"github.com/tashifkhan/MOOC-utils/internal/filter"
	"github.com/tashifkhan/MOOC-utils/internal/preferences"
)

// SearchResponse is returned by GET /search
type SearchResponse struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Courses []course.Course `json:"courses"`
}

// AnnouncementsResponse is returned by GET /courses/:code/announcements
type AnnouncementsResponse struct {
	Code          string                `json:"code"`
	Cached        bool                  `json:"cached"`
	Count         int                   `json:"count"`
	Announcements []course.Announcement `json:"announcements"`
}

func splitParam(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func courseCode(c echo.Context) (string, error) {
	code := c.Param("code")
	if !preferences.IsValidCourseCode(code) {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid course code: "+code)
	}
	return code, nil
}

func (s *Server) search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}

	courses, err := s.catalog.Search(c.Request().Context(), q)
	if err != nil {
		return err
	}

	f := filter.NewFilter()
	f.NCCodes = splitParam(c.QueryParam("nc"))
	f.Institutes = splitParam(c.QueryParam("institute"))
	courses = f.ApplyCourses(courses)

	return c.JSON(http.StatusOK, SearchResponse{Query: q, Count: len(courses), Courses: courses})
}

func (s *Server) listCourses(c echo.Context) error {
	courses, err := s.catalog.Store().ListCourses(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, courses)
}

func (s *Server) getCourse(c echo.Context) error {
	code, err := courseCode(c)
	if err != nil {
		return err
	}
	stored, err := s.catalog.Store().GetCourse(c.Request().Context(), code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stored)
}

func (s *Server) announcements(c echo.Context) error {
	code, err := courseCode(c)
	if err != nil {
		return err
	}

	f := filter.NewFilter()
	if since := c.QueryParam("since"); since != "" {
		from, to, err := filter.ParseDateRange(since, s.now())
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		f.DateFrom, f.DateTo = from, to
	}

	anns, cached, err := s.catalog.Announcements(c.Request().Context(), code)
	if err != nil {
		return err
	}
	anns = f.ApplyAnnouncements(anns)

	return c.JSON(http.StatusOK, AnnouncementsResponse{
		Code:          code,
		Cached:        cached,
		Count:         len(anns),
		Announcements: anns,
	})
}

func (s *Server) calendar(c echo.Context) error {
	code, err := courseCode(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	info := course.Course{Code: code, Title: code}
	if stored, err := s.catalog.Store().GetCourse(ctx, code); err == nil {
		info = stored.Course
	}

	anns, _, err := s.catalog.Announcements(ctx, code)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+code+`.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(calendar.GenerateICS(info, anns, s.now())))
}

func (s *Server) notifications(c echo.Context) error {
	list, err := s.catalog.Store().ListNotifications(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) markRead(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	if err := s.catalog.Store().MarkRead(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
