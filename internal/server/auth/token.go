package auth

import "github.com/apetrenko/filevault/internal/common"

// NewVerificationToken returns a 32-byte random url-safe token used for
// email verification links.
func NewVerificationToken() (string, error) {
	return common.MakeRandURLSafeString(32)
}

// NewGrantID returns a 64-byte random url-safe identifier for download
// grants. 64 bytes keeps well above the 256-bit entropy floor and encodes
// to 86 characters.
func NewGrantID() (string, error) {
	return common.MakeRandURLSafeString(64)
}
