package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/username/capfolio/backend/src/models"
)

func TestIsShortTermBoundary(t *testing.T) {
	acquired := day("2023-03-01")

	tests := []struct {
		name  string
		sold  time.Time
		short bool
	}{
		{"same day", acquired, true},
		{"one day later", acquired.AddDate(0, 0, 1), true},
		{"exactly 365 days", acquired.Add(365 * 24 * time.Hour), true},
		{"365 days and a second", acquired.Add(365*24*time.Hour + time.Second), false},
		{"366 days", acquired.Add(366 * 24 * time.Hour), false},
		{"years later", acquired.AddDate(3, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.short, IsShortTerm(acquired, tt.sold))
		})
	}
}

func TestForm8949Category(t *testing.T) {
	acquired := day("2022-01-15")
	shortSale := acquired.AddDate(0, 6, 0)
	longSale := acquired.AddDate(2, 0, 0)

	assert.Equal(t, models.CategoryA, Form8949Category(acquired, shortSale, true))
	assert.Equal(t, models.CategoryB, Form8949Category(acquired, shortSale, false))
	assert.Equal(t, models.CategoryD, Form8949Category(acquired, longSale, true))
	assert.Equal(t, models.CategoryE, Form8949Category(acquired, longSale, false))
}

func TestForm8949CategoryNo1099(t *testing.T) {
	acquired := day("2022-01-15")

	assert.Equal(t, models.CategoryC, Form8949CategoryNo1099(acquired, acquired.AddDate(0, 6, 0)))
	assert.Equal(t, models.CategoryF, Form8949CategoryNo1099(acquired, acquired.AddDate(2, 0, 0)))
}
