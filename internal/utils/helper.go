package utils

import (
	"log/slog"
	"os"
	"regexp"
)

const masked = "***MASKED***"

var (
	// ?key=..., &api_key=..., &access_token=...
	queryKeyPattern = regexp.MustCompile(`([?&])(api[_\-]?[kK]ey|key|access_token)=([^&\s"]+)`)
	bearerPattern   = regexp.MustCompile(`Bearer\s+([A-Za-z0-9_\-\.]+)`)
	azureKeyPattern = regexp.MustCompile(`Ocp-Apim-Subscription-Key:\s*([^\s]+)`)
	// service account JSON fields that end up in credential parse errors
	privateKeyPattern = regexp.MustCompile(`"(private_key|private_key_id|client_secret|refresh_token)"\s*:\s*"[^"]*"`)
)

// MaskSensitiveData masks API keys, tokens and service account secrets in
// strings before they are logged.
func MaskSensitiveData(s string) string {
	if s == "" {
		return s
	}

	s = queryKeyPattern.ReplaceAllString(s, `${1}${2}=`+masked)
	s = bearerPattern.ReplaceAllString(s, `Bearer `+masked)
	s = azureKeyPattern.ReplaceAllString(s, `Ocp-Apim-Subscription-Key: `+masked)
	s = privateKeyPattern.ReplaceAllString(s, `"${1}": "`+masked+`"`)

	return s
}

// MaskSensitiveError wraps an error and masks sensitive data when the error is converted to string
func MaskSensitiveError(err error) error {
	if err == nil {
		return nil
	}
	return &maskedError{err: err}
}

type maskedError struct {
	err error
}

func (e *maskedError) Error() string {
	return MaskSensitiveData(e.err.Error())
}

func (e *maskedError) Unwrap() error {
	return e.err
}

func ExitOnError(msg string, err error) {
	slog.Error(msg, "err", MaskSensitiveError(err))
	os.Exit(1)
}
