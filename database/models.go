package database

import (
	"time"
)

type Package struct {
	Path      string `gorm:"primaryKey"`
	CreatedAt time.Time
}

type Build struct {
	ID          string  `gorm:"primaryKey"`
	PackagePath string  `gorm:"index"`
	Package     Package `gorm:"foreignKey:PackagePath"`
	CreatedAt   time.Time
	Size        int64
	Requested   int
	Included    int
	Fingerprint string
	ContentHash int64
}

type BuildEntry struct {
	BuildID     string `gorm:"primaryKey"`
	Position    int    `gorm:"primaryKey"`
	Build       Build  `gorm:"foreignKey:BuildID"`
	Name        string
	Path        string
	Fingerprint int64 `gorm:"index"`
	Kind        uint8
	Size        int64
	ContentHash int64
}

// Models lists every table of the registry, in migration order.
func Models() []any {
	return []any{&Package{}, &Build{}, &BuildEntry{}}
}
