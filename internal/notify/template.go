package notify

import "fmt"

// ConfirmationEmail renders the email-confirmation message for an issued
// code. Pure: no I/O, deterministic for given inputs.
func ConfirmationEmail(baseURL, username, code string) (subject, html string) {
	subject = "Confirm your email address"
	html = fmt.Sprintf(`<h2>Hello, %s!</h2>
<p>Use the following code to confirm your email address: <strong>%s</strong></p>
<p>Or follow the link: <a href="%s/verification/confirm-email?code=%s">confirm email</a></p>
<p>If you did not request this, you can ignore this message.</p>`,
		username, code, baseURL, code)
	return subject, html
}
