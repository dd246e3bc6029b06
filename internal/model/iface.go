package model

// Entity is any record the slice container can manage. The identifier must be
// unique within one resource collection.
type Entity[K comparable] interface {
	GetID() K
}

// ID is the identifier type used by every campus resource.
type ID = int64
