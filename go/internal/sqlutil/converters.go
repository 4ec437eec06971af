package sqlutil

import "database/sql"

// Helper functions for converting between Go strings and sql.NullString

// ToNullString converts a string to sql.NullString, treating empty as NULL.
func ToNullString(val string) sql.NullString {
	return sql.NullString{String: val, Valid: val != ""}
}

// FromNullString converts sql.NullString to a string, NULL becoming empty.
func FromNullString(val sql.NullString) string {
	if !val.Valid {
		return ""
	}
	return val.String
}
