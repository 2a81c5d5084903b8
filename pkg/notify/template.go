package notify

import (
	"bytes"
	"html/template"
)

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; margin: 0; padding: 0; background-color: #f6f6f6; }
    .email-container { max-width: 600px; margin: 0 auto; padding: 20px; background-color: #ffffff; border: 1px solid #ddd; border-radius: 5px; }
    .email-header { margin-bottom: 20px; text-align: center; }
    .email-logo { color: #5bb947; }
    .email-content { color: #333333; text-align: center; }
    .email-footer { margin-top: 20px; color: #999999; font-size: 12px; text-align: center; }
  </style>
</head>
<body>
  <div class="email-container">
    <div class="email-header">
      <h2 class="email-logo">eVenta</h2>
    </div>
    <div class="email-content">
      <h2>{{.Title}}</h2>
      <div>{{.Body}}</div>
    </div>
    <div class="email-footer">
      <hr style="border: 0; border-top: 1px solid #eee;">
      <p>This is an automated message, please do not reply. For any support please call 6655</p>
    </div>
  </div>
</body>
</html>
`))

// RenderHTML renders the branded e-mail body for n. Title and body are
// escaped.
func RenderHTML(n Notification) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
