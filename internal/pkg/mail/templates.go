package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const confirmTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">Confirm your subscription</h2>
  <p>Thanks for subscribing{{if .SiteName}} to {{.SiteName}}{{end}}! Click the button below to confirm your email address:</p>
  <p style="margin-top:24px">
    <a href="{{.ConfirmURL}}" style="background:#4f46e5;color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px">Confirm subscription</a>
  </p>
  <p style="color:#999;font-size:12px">The link is valid for 24 hours. If you did not request this, you can safely ignore this email.</p>
</div>
</body>
</html>`

const newsletterTpl = `<!DOCTYPE html>
<html>
<body style="background-color:#fff;margin:0 auto;font-family:ui-sans-serif,system-ui,-apple-system,BlinkMacSystemFont,Segoe UI,Roboto,Helvetica Neue,Arial,Noto Sans,sans-serif;padding:.5rem">
  <table align="center" width="100%" role="presentation" cellspacing="0" cellpadding="0" border="0" style="max-width:100%;border-radius:.375rem;box-shadow:0 4px 6px -1px rgb(0 0 0 / .1),0 2px 4px -2px rgb(0 0 0 / .1);margin:40px auto;padding:20px;width:550px;position:relative;overflow:hidden;border:1px solid rgb(79,70,229)">
    <tbody>
      <tr><td>
        <p style="font-size:14px;line-height:24px;margin:16px 0">{{.SiteName}} just published:</p>
        <h1 style="font-size:20px;text-align:center">{{.Title}}</h1>
        {{if .CoverURL}}<img src="{{.CoverURL}}" style="display:block;max-width:100%;border-radius:.5rem;margin:0 auto" />{{end}}
        <p style="font-size:14px;line-height:24px;margin:16px 0">{{.Excerpt}}</p>
        {{if .Tags}}<p style="font-size:12px;color:rgb(107,114,128)">{{range .Tags}}#{{.}} {{end}}</p>{{end}}
        <table align="center" width="100%" role="presentation" border="0" cellpadding="0" cellspacing="0" style="text-align:center;margin-top:32px;margin-bottom:32px;position:relative">
          <tbody><tr><td>
            <a href="{{.DetailURL}}" target="_blank" style="line-height:100%;text-decoration:none;display:inline-block;max-width:100%;padding:12px 20px;background-color:rgb(79,70,229);border-radius:.25rem;color:#fff;font-size:12px;font-weight:600;text-align:center">Read more</a>
            {{if .UnsubscribeURL}}
            <a href="{{.UnsubscribeURL}}" target="_blank" style="color:rgb(156,163,175);text-decoration:none;position:absolute;right:0;font-size:12px;top:.75rem">Unsubscribe</a>
            {{end}}
          </td></tr></tbody>
        </table>
        <hr style="width:100%;border:none;border-top:1px solid #eaeaea" />
        <p style="font-size:10px;line-height:24px;margin:16px 0;text-align:center;color:rgb(156,163,175)">This email was sent automatically, please do not reply.<br />©{{year}} {{.SiteName}}</p>
      </td></tr>
    </tbody>
  </table>
</body>
</html>`

// ConfirmData is the data for subscription confirmation emails.
type ConfirmData struct {
	SiteName   string
	ConfirmURL string
}

// NewsletterData is the data for new-content notification emails.
type NewsletterData struct {
	SiteName       string
	Title          string
	Excerpt        string
	CoverURL       string
	Tags           []string
	DetailURL      string
	UnsubscribeURL string
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"year": func() int { return time.Now().Year() },
	}).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendSubscribeConfirm sends a double-opt-in confirmation email.
func (s *Sender) SendSubscribeConfirm(ctx context.Context, to string, data ConfirmData) error {
	if strings.TrimSpace(data.SiteName) == "" {
		data.SiteName = "Folio"
	}
	html, err := renderTemplate(confirmTpl, data)
	if err != nil {
		return err
	}
	return s.Send(ctx, Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] Please confirm your subscription", data.SiteName),
		HTML:    html,
		Text:    "Confirm your subscription: " + data.ConfirmURL,
	})
}

// SendNewsletter sends a new-content notification to one subscriber.
func (s *Sender) SendNewsletter(ctx context.Context, to string, data NewsletterData) error {
	if strings.TrimSpace(data.SiteName) == "" {
		data.SiteName = "Folio"
	}
	html, err := renderTemplate(newsletterTpl, data)
	if err != nil {
		return err
	}
	return s.Send(ctx, Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] %s", data.SiteName, data.Title),
		HTML:    html,
		Text:    data.Title + " — " + data.DetailURL,
	})
}
