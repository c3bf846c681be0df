package models

import "strings"

// Record is a single row as exchanged with the spreadsheet backend. Field types are
// not guaranteed: numeric-looking cells may arrive as numbers or strings.
type Record map[string]interface{}

// Collection names a sheet in the remote workbook.
type Collection string

const (
	CollectionUsers       Collection = "Users"
	CollectionStudents    Collection = "Students"
	CollectionMaterials   Collection = "Materials"
	CollectionSubmissions Collection = "Submissions"
	CollectionSettings    Collection = "Settings"
)

// Collections lists every collection the portal keeps in sync.
var Collections = []Collection{
	CollectionUsers,
	CollectionStudents,
	CollectionMaterials,
	CollectionSubmissions,
	CollectionSettings,
}

// RemoteKey is the lowercase name used by the getAll payload.
func (c Collection) RemoteKey() string {
	return strings.ToLower(string(c))
}

// CacheKey is the local persistence key, e.g. senja_users.
func (c Collection) CacheKey() string {
	return "senja_" + c.RemoteKey()
}

// ParseCollection resolves a collection name case-insensitively.
func ParseCollection(raw string) (Collection, bool) {
	for _, c := range Collections {
		if strings.EqualFold(string(c), strings.TrimSpace(raw)) {
			return c, true
		}
	}
	return "", false
}
