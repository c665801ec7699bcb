package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/codeGROOVE-dev/sleuth/pkg/fetch"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteHTML writes a human-readable summary of r.
func WriteHTML(w io.Writer, r *Report) error {
	return htmlTmpl.Execute(w, summarize(r))
}

// Save writes <target>_<timestamp>.json and .html into dir and returns both paths.
func Save(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	base := fmt.Sprintf("%s_%s", unsafeName.ReplaceAllString(r.Target, "_"), r.Timestamp.UTC().Format("20060102_150405"))

	writers := []struct {
		write func(io.Writer, *Report) error
		ext   string
	}{
		{ext: ".json", write: WriteJSON},
		{ext: ".html", write: WriteHTML},
	}
	paths := make([]string, 0, len(writers))
	for _, wr := range writers {
		path := filepath.Join(dir, base+wr.ext)
		if err := writeFile(path, r, wr.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, r *Report, write func(io.Writer, *Report) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f, r); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

type section struct {
	Title  string
	Status string
	Rows   [][2]string
}

type summary struct {
	Report    *Report
	RiskClass string
	Sections  []section
}

func status[T any](r fetch.Result[T]) string {
	switch {
	case r.Status == fetch.StatusSkipped:
		return "skipped: " + r.Reason
	case r.Failure != nil && r.Partial:
		return fmt.Sprintf("partial (%s after %d attempts)", r.Failure.Kind, r.Failure.Attempts)
	case r.Failure != nil:
		return fmt.Sprintf("failed (%s after %d attempts)", r.Failure.Kind, r.Failure.Attempts)
	default:
		return string(r.Status)
	}
}

func count[T any](r fetch.Result[[]T]) string {
	v, ok := r.Usable()
	if !ok {
		return status(r)
	}
	return fmt.Sprint(len(v))
}

func summarize(r *Report) summary {
	s := summary{Report: r, RiskClass: r.Scores.RiskLevel}

	net := section{Title: "Network", Status: status(r.Network)}
	if n, ok := r.Network.Usable(); ok {
		net.Rows = [][2]string{
			{"Total followers", fmt.Sprint(n.TotalFollowers)},
			{"Total followees", fmt.Sprint(n.TotalFollowees)},
			{"Followers sampled", count(n.Followers)},
			{"Followees sampled", count(n.Followees)},
			{"Mutual connections", fmt.Sprint(len(n.Mutual))},
			{"Second-degree expansions", status(n.SecondDegree)},
			{"Common followed accounts", count(n.CommonFollowed)},
		}
	}

	fp := section{Title: "Digital footprint", Status: status(r.Footprint)}
	if f, ok := r.Footprint.Usable(); ok {
		fp.Rows = [][2]string{
			{"External link", status(f.ExternalLink)},
			{"Emails found", fmt.Sprint(len(f.Emails))},
			{"Phone numbers found", fmt.Sprint(len(f.Phones))},
			{"Domain intelligence", status(f.Domain)},
		}
		if l, ok := f.ExternalLink.Usable(); ok {
			fp.Rows = append(fp.Rows, [2]string{"Technologies", fmt.Sprint(l.Technologies)})
		}
		platforms := make([]string, 0, len(f.Presence))
		for p := range f.Presence {
			platforms = append(platforms, p)
		}
		sort.Strings(platforms)
		for _, p := range platforms {
			res := f.Presence[p]
			v := status(res)
			if pr, ok := res.Get(); ok {
				v = "not found"
				if pr.Found {
					v = "found: " + pr.URL
				}
			}
			fp.Rows = append(fp.Rows, [2]string{"Presence on " + p, v})
		}
	}

	tl := section{Title: "Timeline", Status: status(r.Timeline)}
	if t, ok := r.Timeline.Usable(); ok {
		tl.Rows = [][2]string{
			{"Posts sampled", fmt.Sprint(t.PostsSampled)},
			{"Estimated account age (days)", fmt.Sprint(t.AccountAgeDays)},
			{"Active months", fmt.Sprint(len(t.Monthly))},
		}
	}

	bh := section{Title: "Behavior", Status: status(r.Behavior)}
	if b, ok := r.Behavior.Usable(); ok {
		bh.Rows = [][2]string{
			{"Posts sampled", fmt.Sprint(b.PostsSampled)},
			{"Average days between posts", fmt.Sprintf("%.1f", b.AverageDaysBetween)},
			{"Consistency", fmt.Sprintf("%.1f", b.Consistency)},
			{"Automation indicators", fmt.Sprint(b.AutomationIndicators)},
			{"Unique hashtags", fmt.Sprint(len(b.UniqueHashtags))},
			{"Unique mentions", fmt.Sprint(len(b.UniqueMentions))},
		}
	}

	s.Sections = []section{net, fp, tl, bh}
	return s
}

var htmlTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Report: {{.Report.Target}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
.section { border: 1px solid #ccc; border-radius: 4px; padding: 1em; margin-bottom: 1em; }
.risk-high { background: #fdd; } .risk-medium { background: #ffd; } .risk-low { background: #dfd; }
td { padding: 0.2em 1em 0.2em 0; }
.status { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>Report: {{.Report.Target}}</h1>
<p>Generated {{.Report.Timestamp.UTC.Format "2006-01-02 15:04:05 MST"}} &middot; depth {{.Report.Depth}} &middot; id {{.Report.ID}}</p>
{{with .Report.Profile}}
<div class="section">
<h2>Profile</h2>
<table>
<tr><td>Handle</td><td>{{.Handle}}</td></tr>
<tr><td>Name</td><td>{{.DisplayName}}</td></tr>
<tr><td>Followers</td><td>{{.Followers}}</td></tr>
<tr><td>Following</td><td>{{.Followees}}</td></tr>
<tr><td>Posts</td><td>{{.Posts}}</td></tr>
<tr><td>Private</td><td>{{.Private}}</td></tr>
<tr><td>Verified</td><td>{{.Verified}}</td></tr>
{{if .ExternalURL}}<tr><td>External link</td><td>{{.ExternalURL}}</td></tr>{{end}}
</table>
</div>
{{end}}
<div class="section risk-{{.RiskClass}}">
<h2>Security assessment</h2>
<p>Privacy score: {{printf "%.0f" .Report.Scores.PrivacyScore}}/100 &middot; risk level: {{.Report.Scores.RiskLevel}}</p>
{{with .Report.Scores.ExposureRisks}}<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{with .Report.Scores.Recommendations}}<h3>Recommendations</h3><ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{with .Report.Scores.SuspiciousPatterns}}<h3>Suspicious patterns</h3><ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
</div>
{{range .Sections}}
<div class="section">
<h2>{{.Title}}</h2>
<p class="status">{{.Status}}</p>
{{if .Rows}}<table>{{range .Rows}}<tr><td>{{index . 0}}</td><td>{{index . 1}}</td></tr>{{end}}</table>{{end}}
</div>
{{end}}
</body>
</html>
`))
