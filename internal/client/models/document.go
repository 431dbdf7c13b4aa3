package models

// Collection names in the profile document store.
const (
	CollectionUsers     = "users"
	CollectionUsernames = "usernames"
)

// Field names used in profile documents.
const (
	FieldDisplayName = "displayName"
	FieldUsername    = "username"
	FieldUID         = "uid"
)

// Document is a flat set of string-keyed fields. Values are restricted to
// strings, booleans, int64 and float64 so every backend can store them.
type Document map[string]any

// String returns the string value of field, or nil when absent or not a string.
func (d Document) String(field string) *string {
	if d == nil {
		return nil
	}
	v, ok := d[field].(string)
	if !ok {
		return nil
	}
	return &v
}

// WriteMode says how a WriteOp is applied.
type WriteMode int

const (
	// ModeSet replaces the whole document.
	ModeSet WriteMode = iota
	// ModeMerge overwrites only the given fields, creating the document if missing.
	ModeMerge
	// ModeDelete removes the document; deleting a missing document is not an error.
	ModeDelete
)

func (m WriteMode) String() string {
	switch m {
	case ModeSet:
		return "set"
	case ModeMerge:
		return "merge"
	case ModeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// WriteOp is one operation of a batch write.
type WriteOp struct {
	Collection string
	Key        string
	Fields     Document
	Mode       WriteMode
}

// Merge is a shorthand for a ModeMerge operation.
func Merge(collection, key string, fields Document) WriteOp {
	return WriteOp{Collection: collection, Key: key, Fields: fields, Mode: ModeMerge}
}

// Set is a shorthand for a ModeSet operation.
func Set(collection, key string, fields Document) WriteOp {
	return WriteOp{Collection: collection, Key: key, Fields: fields, Mode: ModeSet}
}

// Delete is a shorthand for a ModeDelete operation.
func Delete(collection, key string) WriteOp {
	return WriteOp{Collection: collection, Key: key, Mode: ModeDelete}
}
