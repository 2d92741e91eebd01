package item

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryFruit     Category = "FRUIT"
	CategoryVegetable Category = "VEGETABLE"
	CategoryDairy     Category = "DAIRY"
	CategoryBread     Category = "BREAD"
	CategoryNonVeg    Category = "NON_VEG"
	CategoryPantry    Category = "PANTRY"
)

func (c Category) String() string {
	return string(c)
}

// Categories возвращает все допустимые категории в фиксированном порядке.
func Categories() []Category {
	return []Category{
		CategoryFruit,
		CategoryVegetable,
		CategoryDairy,
		CategoryBread,
		CategoryNonVeg,
		CategoryPantry,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFruit, CategoryVegetable, CategoryDairy, CategoryBread, CategoryNonVeg, CategoryPantry:
		return true
	}
	return false
}

type Item struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	ImageURL    *string         `json:"image_url" db:"image_url"`
	Stock       int             `json:"stock" db:"stock"`
	Category    Category        `json:"category" db:"category"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// ListFilter - параметры выборки каталога.
// Limit обрезается до 1..50 на уровне сервиса.
type ListFilter struct {
	Search   string
	Category Category
	Page     int
	Limit    int
}

type Page struct {
	Items []Item `json:"items"`
	Pagination
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
