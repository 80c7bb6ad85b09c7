package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"charchat-client/internal/models"
)

// render печатает v как JSON при --json, иначе вызывает table.
func (a *app) render(v any, table func(w io.Writer)) error {
	if a.jsonOutput {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

// printf безопасен для вызова из обработчиков событий канала.
func (a *app) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

func pageFooter(w io.Writer, page, total int, hasMore bool) {
	more := ""
	if hasMore {
		more = fmt.Sprintf(", next: --page %d", page+1)
	}
	fmt.Fprintf(w, "\npage %d, %d total%s\n", page, total, more)
}

func shortTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func money(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}

func readMark(n models.Notification) string {
	if n.IsRead {
		return " "
	}
	return "*"
}

func printUser(w io.Writer, u *models.User) {
	fmt.Fprintf(w, "ID:\t%s\n", u.ID)
	fmt.Fprintf(w, "Username:\t%s\n", u.Username)
	fmt.Fprintf(w, "Display name:\t%s\n", u.DisplayName)
	if u.Email != "" {
		fmt.Fprintf(w, "Email:\t%s\n", u.Email)
	}
	if u.Bio != "" {
		fmt.Fprintf(w, "Bio:\t%s\n", u.Bio)
	}
	fmt.Fprintf(w, "Tokens:\t%d\n", u.TokenBalance)
	fmt.Fprintf(w, "Creator level:\t%d\n", u.CreatorLevel)
	fmt.Fprintf(w, "Roles:\t%s\n", strings.Join(u.Roles, ", "))
	if u.Locale != "" {
		fmt.Fprintf(w, "Locale:\t%s\n", u.Locale)
	}
}
