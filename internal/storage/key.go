package storage

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var safeExtension = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// NewKey returns a collision-free object key for an uploaded file. Only the
// lower-cased extension of filename survives, and only when it is short and
// alphanumeric; otherwise the key has no extension at all.
func NewKey(filename string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String() + keyExtension(filename), nil
}

func keyExtension(filename string) string {
	extension := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if !safeExtension.MatchString(extension) {
		return ""
	}
	return extension
}

func validKey(key string) bool {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.HasPrefix(key, ".") {
		return false
	}
	id := strings.TrimSuffix(key, path.Ext(key))
	_, err := uuid.Parse(id)
	return err == nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
