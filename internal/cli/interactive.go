package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tashifkhan/MOOC-utils/internal/course"
)

// browser is the part of the catalog the prompt loop needs
type browser interface {
	Search(ctx context.Context, query string) ([]course.Course, error)
	Announcements(ctx context.Context, code string) ([]course.Announcement, bool, error)
}

func newInteractiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Search courses and read announcements at a prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			return runInteractive(cmd.Context(), e.catalog, cmd.InOrStdin(), e.out)
		},
	}
}

// runInteractive loops: query, numbered results, pick one, show its announcements.
// 'q' at the query prompt quits and 'c' at the selection prompt goes back.
// End of input quits as well.
func runInteractive(ctx context.Context, b browser, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	prompt := func(text string) (string, bool) {
		fmt.Fprint(out, text)
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	fmt.Fprintln(out, "Welcome to MOOC Course Search & Announcement Fetcher")
	fmt.Fprintln(out, "----------------------------------------------------")

	for ctx.Err() == nil {
		query, ok := prompt("\nEnter search query (or 'q' to quit): ")
		if !ok || strings.EqualFold(query, "q") {
			break
		}
		if query == "" {
			continue
		}

		fmt.Fprintf(out, "Searching for '%s'...\n", query)
		courses, err := b.Search(ctx, query)
		if err != nil {
			fmt.Fprintf(out, "Error searching courses: %v\n", err)
			continue
		}
		if len(courses) == 0 {
			fmt.Fprintln(out, "No courses found.")
			continue
		}

		fmt.Fprintf(out, "\nFound %d courses:\n", len(courses))
		for i, c := range courses {
			fmt.Fprintf(out, "%d. %s\n", i+1, c)
		}

		choice, ok := prompt("\nSelect course number to view announcements (or 'c' to cancel): ")
		if !ok {
			break
		}
		if strings.EqualFold(choice, "c") {
			continue
		}

		n, err := strconv.Atoi(choice)
		if err != nil {
			fmt.Fprintln(out, "Invalid input.")
			continue
		}
		if n < 1 || n > len(courses) {
			fmt.Fprintln(out, "Invalid selection.")
			continue
		}

		selected := courses[n-1]
		fmt.Fprintf(out, "\nFetching announcements for: %s (%s)...\n", selected.Title, selected.Code)
		anns, _, err := b.Announcements(ctx, selected.Code)
		if err != nil {
			fmt.Fprintf(out, "Error fetching announcements: %v\n", err)
			continue
		}
		writeAnnouncements(out, selected.Title, anns)
	}

	fmt.Fprintln(out, "\nGoodbye!")
	return scanner.Err()
}
