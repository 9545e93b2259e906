package model

import (
	"regexp"
	"unicode/utf16"
)

// Field identifies a sign-up form field that can carry an error message
type Field string

const (
	FieldEmail           Field = "email"
	FieldPassword        Field = "password"
	FieldConfirmPassword Field = "confirmPassword"
	FieldNickname        Field = "nickname"
	FieldGeneral         Field = "general" // Errors not tied to a single input
)

// fieldOrder is the order in which field errors are reported to clients
var fieldOrder = []Field{FieldEmail, FieldPassword, FieldConfirmPassword, FieldNickname, FieldGeneral}

// Sign-up validation messages shown to the user
const (
	MsgInvalidEmail       = "이메일 형식이 잘못되었습니다."
	MsgWeakPassword       = "비밀번호는 8자 이상, 영문과 숫자, 특수문자를 포함해야 합니다."
	MsgPasswordMismatch   = "비밀번호와 비밀번호 확인이 일치하지 않습니다."
	MsgNicknameTooShort   = "별명은 2글자 이상이어야 합니다."
	MsgEmailAlreadyInUse  = "이미 가입 된 이메일 입니다."
	MsgProfileInsert      = "회원 데이터 추가 중 오류가 발생했습니다."
	MsgRegistrationFailed = "회원가입 중 오류가 발생했습니다."
)

const (
	MinPasswordLength = 8
	MinNicknameLength = 2

	// PasswordSpecialChars is the set of symbols a password must draw from
	PasswordSpecialChars = "@$!%*?&"
)

// emailPattern accepts local@domain.tld where no part contains whitespace or '@'.
// The whitespace class mirrors browser regex \s, which also covers \v, NBSP and
// the Unicode space separators.
var emailPattern = regexp.MustCompile(`^[^\s\x{0B}\p{Z}\x{FEFF}@]+@[^\s\x{0B}\p{Z}\x{FEFF}@]+\.[^\s\x{0B}\p{Z}\x{FEFF}@]+$`)

// FieldErrors maps a form field to a human-readable error message.
// A missing key means the field has no error.
type FieldErrors map[Field]string

// Has reports whether the given field has an error
func (e FieldErrors) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

// List returns the errors in stable form order for API responses
func (e FieldErrors) List() []FieldError {
	out := make([]FieldError, 0, len(e))
	for _, f := range fieldOrder {
		if msg, ok := e[f]; ok {
			out = append(out, FieldError{Field: string(f), Message: msg})
		}
	}
	return out
}

// RegistrationInput holds the raw values of the sign-up form
type RegistrationInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Nickname        string `json:"nickname"`
	Name            string `json:"name"`
}

// ValidationResult is the outcome of validating a RegistrationInput
type ValidationResult struct {
	OK     bool
	Errors FieldErrors
}

// Check validates the input and wraps the result
func (in RegistrationInput) Check() ValidationResult {
	errs := in.Validate()
	return ValidationResult{OK: len(errs) == 0, Errors: errs}
}

// Validate checks every field independently and returns all failures.
// Name is accepted as-is. An empty confirmation is not compared against the password.
func (in RegistrationInput) Validate() FieldErrors {
	errs := FieldErrors{}

	if !IsValidEmail(in.Email) {
		errs[FieldEmail] = MsgInvalidEmail
	}
	if !IsStrongPassword(in.Password) {
		errs[FieldPassword] = MsgWeakPassword
	}
	if in.ConfirmPassword != "" && in.Password != in.ConfirmPassword {
		errs[FieldConfirmPassword] = MsgPasswordMismatch
	}
	if utf16Len(in.Nickname) < MinNicknameLength {
		errs[FieldNickname] = MsgNicknameTooShort
	}

	return errs
}

// IsValidEmail reports whether s has the local@domain.tld shape
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsStrongPassword reports whether s has at least one ASCII letter, one digit and
// one special character, uses nothing outside those classes, and is at least
// MinPasswordLength long.
func IsStrongPassword(s string) bool {
	if len(s) < MinPasswordLength {
		return false
	}

	var letter, digit, special bool
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		case isPasswordSpecial(r):
			special = true
		default:
			return false
		}
	}
	return letter && digit && special
}

func isPasswordSpecial(r rune) bool {
	for _, c := range PasswordSpecialChars {
		if r == c {
			return true
		}
	}
	return false
}

// utf16Len counts UTF-16 code units, the unit browsers use for string length
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
