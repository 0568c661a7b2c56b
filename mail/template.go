package mail

import (
	"bytes"
	"html/template"
)

// ResetPasswordSubject is the subject of the reset email.
const ResetPasswordSubject = "أعادة تعيين كلمة السر"

var resetPasswordTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html lang="ar" dir="rtl">
<body>
<div style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h2 style="color: #4CAF50;">إعادة تعيين كلمة السر</h2>
	<p>لقد طلبت إعادة تعيين كلمة السر الخاصة بك. الرجاء استخدام الرابط التالي لإعادة تعيين كلمة السر الخاصة بك:</p>
	<a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; margin: 10px 0; font-size: 16px; color: #fff; background-color: #4CAF50; text-decoration: none; border-radius: 5px;">إعادة تعيين كلمة السر</a>
	<p>إذا لم تطلب إعادة تعيين كلمة السر، يرجى تجاهل هذا البريد الإلكتروني.</p>
</div>
</body>
</html>
`))

// ResetPasswordMessage renders the reset email for to.
func ResetPasswordMessage(to, link string) (*Message, error) {
	var buf bytes.Buffer
	if err := resetPasswordTmpl.Execute(&buf, struct{ Link string }{link}); err != nil {
		return nil, err
	}
	return &Message{To: to, Subject: ResetPasswordSubject, HTML: buf.String()}, nil
}
