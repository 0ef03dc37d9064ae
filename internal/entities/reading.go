package entities

import "time"

// ReadingProgress is a user's position in a book. Once IsCompleted is set by
// reaching the completion threshold it stays set; only an explicit mark clears it.
type ReadingProgress struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex:idx_progress_user_book" json:"user_id"`
	BookID      uint       `gorm:"not null;index;uniqueIndex:idx_progress_user_book" json:"book_id"`
	CurrentPage int        `gorm:"not null;default:0;check:chk_progress_page,current_page >= 0" json:"current_page"`
	IsCompleted bool       `gorm:"not null;default:false;index" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	LastRead    time.Time  `gorm:"index" json:"last_read"`
	User        *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	Book        *Book      `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE;" json:"book,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	// JustCompleted is set on the value returned by the write that completed the book.
	JustCompleted bool `gorm:"-" json:"just_completed,omitempty"`
}

func (ReadingProgress) TableName() string {
	return "reading_progress"
}

// Bookmark marks a book as saved by a user. Presence of the row is the state.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_user_book" json:"user_id"`
	BookID    uint      `gorm:"not null;index;uniqueIndex:idx_bookmark_user_book" json:"book_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
	Book      *Book     `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE;" json:"book,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Bookmark) TableName() string {
	return "bookmarks"
}
