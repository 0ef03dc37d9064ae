package entities

import (
	"time"
)

type BookLanguage string

const (
	BookLanguageEnglish  BookLanguage = "en"
	BookLanguageSpanish  BookLanguage = "es"
	BookLanguageFrench   BookLanguage = "fr"
	BookLanguageGerman   BookLanguage = "de"
	BookLanguageChinese  BookLanguage = "zh"
	BookLanguageJapanese BookLanguage = "ja"
	BookLanguageRussian  BookLanguage = "ru"
	BookLanguageArabic   BookLanguage = "ar"
	BookLanguageOther    BookLanguage = "other"
)

// Valid reports whether l is a known language code.
func (l BookLanguage) Valid() bool {
	switch l {
	case BookLanguageEnglish, BookLanguageSpanish, BookLanguageFrench, BookLanguageGerman,
		BookLanguageChinese, BookLanguageJapanese, BookLanguageRussian, BookLanguageArabic,
		BookLanguageOther:
		return true
	}
	return false
}

// BookFormat is the file format of a book's readable content.
type BookFormat string

const (
	BookFormatPDF  BookFormat = "pdf"
	BookFormatEPUB BookFormat = "epub"
	BookFormatMOBI BookFormat = "mobi"
	BookFormatText BookFormat = "txt"
)

// Valid reports whether f is a supported file format.
func (f BookFormat) Valid() bool {
	switch f {
	case BookFormatPDF, BookFormatEPUB, BookFormatMOBI, BookFormatText:
		return true
	}
	return false
}

// ContentType is the MIME type the format is served with.
func (f BookFormat) ContentType() string {
	switch f {
	case BookFormatPDF:
		return "application/pdf"
	case BookFormatEPUB:
		return "application/epub+zip"
	case BookFormatMOBI:
		return "application/x-mobipocket-ebook"
	case BookFormatText:
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}

type Author struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"index;size:200;not null" json:"name"`
	Slug      string     `gorm:"uniqueIndex;size:220;not null" json:"slug"`
	Bio       string     `gorm:"type:text" json:"bio,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	DeathDate *time.Time `json:"death_date,omitempty"`
	PhotoPath string     `gorm:"size:1024" json:"photo_path,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Genre struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;size:120;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Book is a catalog entry. AverageRating and ReviewCount are derived from the
// book's reviews and are written only by the rating aggregator.
type Book struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	Title           string       `gorm:"index;size:300;not null" json:"title"`
	Slug            string       `gorm:"uniqueIndex;size:320;not null" json:"slug"`
	ISBN            *string      `gorm:"uniqueIndex;size:13" json:"isbn,omitempty"`
	Description     string       `gorm:"type:text" json:"description,omitempty"`
	Language        BookLanguage `gorm:"size:10;default:'en'" json:"language"`
	Format          BookFormat   `gorm:"size:10;default:'pdf'" json:"format"`
	Publisher       string       `gorm:"size:200" json:"publisher,omitempty"`
	PublicationYear int          `json:"publication_year,omitempty"`
	PageCount       *int         `json:"page_count,omitempty"`
	CoverPath       string       `gorm:"size:1024" json:"cover_path,omitempty"`
	CoverURL        string       `gorm:"size:2048" json:"cover_url,omitempty"`
	FilePath        string       `gorm:"size:1024" json:"file_path,omitempty"`
	AverageRating   float64      `gorm:"type:decimal(3,2);not null;default:0" json:"average_rating"`
	ReviewCount     int64        `gorm:"not null;default:0" json:"review_count"`
	IsFeatured      bool         `gorm:"index;default:false" json:"is_featured"`
	IsPopular       bool         `gorm:"default:false" json:"is_popular"`
	Authors         []Author     `gorm:"many2many:book_authors;constraint:OnDelete:CASCADE;" json:"authors,omitempty"`
	Genres          []Genre      `gorm:"many2many:book_genres;constraint:OnDelete:CASCADE;" json:"genres,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// HasFile reports whether readable content has been uploaded.
func (b *Book) HasFile() bool {
	return b.FilePath != ""
}

// HasPageCount reports whether the page count is known.
func (b *Book) HasPageCount() bool {
	return b.PageCount != nil && *b.PageCount > 0
}

func (Author) TableName() string {
	return "authors"
}

func (Genre) TableName() string {
	return "genres"
}

func (Book) TableName() string {
	return "books"
}
