package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/samber/lo"

	"github.com/inboxsage/inboxsage/app/database"
)

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f4f7;font-family:Helvetica,Arial,sans-serif;color:#333;">
<div style="max-width:600px;margin:0 auto;padding:24px;">
  <h1 style="font-size:22px;margin-bottom:8px;">{{.Title}}</h1>
  <p style="font-size:15px;line-height:1.5;">{{.Introduction}}</p>
{{if .Highlights}}
  <div style="background-color:#ffffff;border-radius:8px;padding:16px;margin:16px 0;">
    <h2 style="font-size:16px;margin:0 0 8px;">Highlights</h2>
    <ul style="margin:0;padding-left:20px;">
{{range .Highlights}}      <li style="font-size:14px;line-height:1.5;">{{.}}</li>
{{end}}    </ul>
  </div>
{{end}}
{{range .Articles}}
  <div style="background-color:#ffffff;border-radius:8px;padding:16px;margin:16px 0;">
{{if .ImageURL}}    <img src="{{.ImageURL}}" alt="" style="max-width:100%;border-radius:4px;margin-bottom:8px;">
{{end}}    <h2 style="font-size:17px;margin:0 0 4px;"><a href="{{.URL}}" style="color:#1a73e8;text-decoration:none;">{{.Title}}</a></h2>
{{if .Byline}}    <p style="font-size:12px;color:#888;margin:0 0 8px;">{{.Byline}}</p>
{{end}}{{if .Summary}}    <p style="font-size:14px;line-height:1.5;">{{.Summary}}</p>
{{end}}{{if .Takeaways}}    <ul style="margin:8px 0;padding-left:20px;">
{{range .Takeaways}}      <li style="font-size:13px;line-height:1.5;">{{.}}</li>
{{end}}    </ul>
{{end}}{{if .Tags}}    <p style="font-size:12px;color:#888;margin:8px 0 0;">{{.Tags}}</p>
{{end}}    <p style="margin:8px 0 0;"><a href="{{.URL}}" style="font-size:13px;color:#1a73e8;">Read more →</a></p>
  </div>
{{end}}
  <p style="font-size:15px;line-height:1.5;">{{.Conclusion}}</p>
  <hr style="border:none;border-top:1px solid #ddd;margin:24px 0;">
  <p style="font-size:12px;color:#888;text-align:center;">
    <a href="{{.PreferencesURL}}" style="color:#888;">Preferences</a> ·
    <a href="{{.UnsubscribeURL}}" style="color:#888;">Unsubscribe</a>
  </p>
</div>
</body>
</html>
`))

type articleView struct {
	Title     string
	URL       string
	Byline    string
	Summary   string
	ImageURL  string
	Takeaways []string
	Tags      string
}

type digestView struct {
	Title          string
	Introduction   string
	Conclusion     string
	Highlights     []string
	Articles       []articleView
	UnsubscribeURL string
	PreferencesURL string
}

func renderDigest(baseURL string, digest *database.Digest, articles []database.Article, profile *database.Profile) (string, error) {
	view := digestView{
		Title:          digest.Title,
		Introduction:   digest.Introduction,
		Conclusion:     digest.Conclusion,
		Highlights:     digest.Highlights,
		UnsubscribeURL: unsubscribeURL(baseURL, digest.UserID),
		PreferencesURL: fmt.Sprintf("%s/preferences?token=%s", baseURL, digest.UserID),
		Articles: lo.Map(articles, func(article database.Article, _ int) articleView {
			return newArticleView(article, profile)
		}),
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}
	return buf.String(), nil
}

func newArticleView(article database.Article, profile *database.Profile) articleView {
	view := articleView{
		Title:     article.Title,
		URL:       article.URL,
		Takeaways: article.KeyTakeaways,
	}
	if article.Summary != nil {
		view.Summary = *article.Summary
	}
	if profile.IncludeImages {
		view.ImageURL = article.ImageURL
	}

	var meta []string
	if article.Author != "" {
		meta = append(meta, article.Author)
	}
	if !article.PublishedAt.IsZero() {
		meta = append(meta, article.PublishedAt.Format("January 2, 2006"))
	}
	if article.ReadingTime > 0 {
		meta = append(meta, fmt.Sprintf("%d min read", article.ReadingTime))
	}
	if article.RelevanceScore != nil {
		meta = append(meta, fmt.Sprintf("Relevance: %.0f%%", *article.RelevanceScore*100))
	}
	view.Byline = strings.Join(meta, " · ")

	if len(article.Tags) > 0 {
		tags := lo.Map(article.Tags, func(tag string, _ int) string { return "#" + tag })
		view.Tags = strings.Join(tags, " ")
	}
	return view
}

func unsubscribeURL(baseURL, userID string) string {
	return fmt.Sprintf("%s/unsubscribe?token=%s", baseURL, userID)
}
