package authcore

import "fmt"

// Input limits.
const (
	PasswordMinLength = 8
	PasswordMaxLength = 128
	NameMinLength     = 2
	NameMaxLength     = 100
)

// Field names used in validation errors.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldName            = "name"
	FieldType            = "type"
	FieldToken           = "token"
	FieldRefreshToken    = "refreshToken"
	FieldNewPassword     = "newPassword"
	FieldCurrentPassword = "currentPassword"
)

// Validation messages.
var (
	MsgNameRequired  = "الاسم مطلوب"
	MsgNameMinLength = fmt.Sprintf("يجب ألا يقل الاسم عن %d حرفًا", NameMinLength)
	MsgNameMaxLength = fmt.Sprintf("يجب ألا يزيد الاسم عن %d حرفًا", NameMaxLength)

	MsgPasswordRequired  = "كلمة المرور مطلوبة"
	MsgPasswordMinLength = fmt.Sprintf("يجب ألا تقل كلمة المرور عن %d حرفًا", PasswordMinLength)
	MsgPasswordMaxLength = fmt.Sprintf("يجب ألا تزيد كلمة المرور عن %d حرفًا", PasswordMaxLength)
	MsgPasswordFormat    = "يجب أن تحتوي كلمة المرور على حرف كبير واحد على الأقل، وحرف صغير واحد على الأقل، ورقم واحد على الأقل"

	MsgEmailRequired = "البريد الإلكتروني مطلوب"
	MsgEmailFormat   = "صيغة البريد الإلكتروني غير صحيحة"
	MsgTokenRequired = "الرمز مطلوب"
	MsgTypeInvalid   = "نوع المستخدم غير مسموح به"

	MsgValidationFailed = "البريد الإلكتروني أو كلمة المرور غير صحيحة"
)

// Error messages.
const (
	MsgInvalidCredentials = "البريد إلكتروني أو كلمة المرور غير صحيحة"
	MsgUserNotFound       = "المستخدم غير موجود"
	MsgEmailAlreadyExists = "البريد الإلكتروني مستخدم بالفعل"
	MsgInvalidToken       = "الرمز غير صالح"
	MsgTokenExpired       = "انتهت صلاحية الرمز"
	MsgUserInactive       = "المستخدم غير نشط"
	MsgUserSuspended      = "المستخدم معلق"
	MsgUnauthorized       = "المصادقة مطلوبة"
	MsgForbidden          = "ليس لديك إذن للوصول إلى هذا المورد"
	MsgInvalidPassword    = "كلمة المرور الحالية غير صحيحة"
	MsgTokenRevoked       = "تم إبطال الرمز. يرجى تسجيل الدخول مرة أخرى."
	MsgInternal           = "An unexpected error occurred"

	MsgRateLimitAuth   = "Too many attempts. Please try again after 15 minutes."
	MsgRateLimitForgot = "Too many password reset requests. Please try again after 1 hour."
)

// Success messages.
const (
	MsgSignUp                 = "تم إنشاء الحساب بنجاح"
	MsgLogin                  = "تم تسجيل الدخول بنجاح"
	MsgLogout                 = "تم تسجيل الخروج بنجاح"
	MsgPasswordResetEmailSent = "تم إرسال رابط إعادة تعيين كلمة المرور إلى بريدك الإلكتروني"
	MsgPasswordChanged        = "تم تغيير كلمة المرور بنجاح"
)
