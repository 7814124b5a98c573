package util

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"socialconnect/internal/models"
	"socialconnect/internal/repository"
)

const templates = `
{{define "user"}}{{.DisplayName}} <{{.Email}}>{{if .IsOnline}} (online){{end}}
  id:     {{.ID}}
  avatar: {{.AvatarURL}}
{{end}}

{{define "post"}}[{{.ID}}] {{.Author.DisplayName}} · {{ago .CreatedAt}}
  {{.Content}}
{{- if .Image}}
  image: {{.Image}}
{{- end}}
  {{if .IsLikedByCurrentUser}}♥{{else}}♡{{end}} {{.LikeCount}}  comments {{len .Comments}}  shares {{.ShareCount}}
{{- range .Comments}}
    > [{{.ID}}] {{.Author.DisplayName}} · {{ago .CreatedAt}}: {{.Content}} ({{if .IsLikedByCurrentUser}}♥{{else}}♡{{end}} {{.LikeCount}})
{{- end}}
{{end}}

{{define "feed"}}{{if not .}}No posts yet.
{{else}}{{range .}}{{template "post" .}}
{{end}}{{end}}{{end}}

{{define "usage"}}Used:  {{kb .UsedBytes}}
Total: {{mb .CapacityBytes}}
{{printf "%.1f" .Percentage}}% used
{{end}}
`

// Render executes the named template ("user", "post", "feed" or "usage")
// against data, with relative times computed against now.
func Render(w io.Writer, name string, data any, now time.Time) error {
	t := template.Must(template.New("socialconnect").Funcs(template.FuncMap{
		"ago": func(ts time.Time) string { return RelativeTime(ts, now) },
		"kb":  func(n int64) string { return fmt.Sprintf("%.2f KB", float64(n)/1024) },
		"mb":  func(n int64) string { return fmt.Sprintf("%.2f MB", float64(n)/1024/1024) },
	}).Parse(templates))
	return t.ExecuteTemplate(w, name, data)
}

func RenderFeed(w io.Writer, posts models.Feed, now time.Time) error {
	return Render(w, "feed", posts, now)
}

func RenderUser(w io.Writer, u models.User) error {
	return Render(w, "user", u, time.Time{})
}

func RenderUsage(w io.Writer, u repository.Usage) error {
	return Render(w, "usage", u, time.Time{})
}

// RelativeTime renders "Just now", "5m", "3h", "2d" and falls back to the
// date after a week.
func RelativeTime(ts, now time.Time) string {
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
	return ts.Local().Format("2006-01-02")
}
