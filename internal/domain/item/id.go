package item

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"

	"github.com/google/uuid"
)

// DeriveID maps raw content to a stable identifier: the md5 hex digest of the
// bytes, hashed into a UUIDv5 under the URL namespace.
func DeriveID(raw []byte) string {
	sum := md5.Sum(raw) //nolint:gosec // see import
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(hex.EncodeToString(sum[:]))).String()
}
