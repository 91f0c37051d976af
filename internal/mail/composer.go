package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const layout = `{{define "layout"}}<div style="font-family: Arial, sans-serif; padding: 20px; background-color: #f9f9f9;">
<h2 style="color: #4CAF50;">{{.Heading}}</h2>
{{template "body" .}}
<hr style="margin: 40px 0; border: none; border-top: 1px solid #ddd;" />
<small>If you didn't sign up for this account, you can safely ignore this email.</small>
</div>{{end}}`

const welcomeBody = `{{define "body"}}<p>Hi {{.Name}},</p>
<p>We're excited to have you on board! You've successfully registered to <strong>{{.App}}</strong>.</p>
<p>This app allows you to manage your tasks effortlessly with features like:</p>
<ul>
<li>Create, edit, and delete your todos</li>
<li>Track completed tasks</li>
<li>Secure login and password recovery</li>
</ul>
<p>Start using the app now and take control of your productivity.</p>
<p style="margin-top: 20px;">Cheers,<br/>The {{.App}} Team</p>{{end}}`

const codeBody = `{{define "body"}}<p>Hi {{.Email}},</p>
<p>We received a request to {{.Action}} for your {{.App}} account. To proceed, please use the following verification code:</p>
<p style="font-size: 24px; font-weight: bold; text-align: center; margin: 20px 0;">{{.Code}}</p>
<p>This code will expire in {{.Minutes}} minutes.</p>
<p>If you did not request this, please ignore this email.</p>
<p>Thank you for using {{.App}}!</p>{{end}}`

type view struct {
	App     string
	Heading string
	Name    string
	Email   string
	Action  string
	Code    string
	Minutes int
}

// Composer renders the account mails. From is used as the sender address
// of every message it builds.
type Composer struct {
	app     string
	from    string
	otpTTL  time.Duration
	welcome *template.Template
	code    *template.Template
}

func NewComposer(app, from string, otpTTL time.Duration) *Composer {
	return &Composer{
		app:     app,
		from:    from,
		otpTTL:  otpTTL,
		welcome: template.Must(template.Must(template.New("welcome").Parse(layout)).Parse(welcomeBody)),
		code:    template.Must(template.Must(template.New("code").Parse(layout)).Parse(codeBody)),
	}
}

func (c *Composer) Welcome(name, to string) (Message, error) {
	subject := fmt.Sprintf("🎉 Welcome to %s, %s!", c.app, name)
	return c.render(c.welcome, to, subject, view{App: c.app, Heading: subject, Name: name})
}

func (c *Composer) ResetOTP(to, code string) (Message, error) {
	subject := fmt.Sprintf("🔒 Reset Password for %s", c.app)
	return c.render(c.code, to, subject, view{
		App: c.app, Heading: subject, Email: to, Action: "reset your password", Code: code, Minutes: c.minutes(),
	})
}

func (c *Composer) VerifyOTP(to, code string) (Message, error) {
	subject := fmt.Sprintf("🔒 Verify your email for %s", c.app)
	return c.render(c.code, to, subject, view{
		App: c.app, Heading: subject, Email: to, Action: "verify your email", Code: code, Minutes: c.minutes(),
	})
}

func (c *Composer) minutes() int {
	return int(c.otpTTL / time.Minute)
}

func (c *Composer) render(t *template.Template, to, subject string, v view) (Message, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return Message{From: c.from, To: to, Subject: subject, HTML: buf.String()}, nil
}
