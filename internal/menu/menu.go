package menu

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"pizzeria-rag/internal/config"
	"pizzeria-rag/internal/models"
)

// Columns names the headers read from the three tables.
type Columns struct {
	Dish, Price, Ingredients, Category string
	Code, Label                        string
	DishName, Allergens                string
}

func DefaultColumns() Columns {
	return Columns{
		Dish:        models.ColMenuDish,
		Price:       models.ColMenuPrice,
		Ingredients: models.ColMenuIngredients,
		Category:    models.ColMenuCategory,
		Code:        models.ColAllergenCode,
		Label:       models.ColAllergenLabel,
		DishName:    models.ColDishName,
		Allergens:   models.ColDishAllergens,
	}
}

// ColumnsFrom applies the overrides of a menu config on top of the defaults.
func ColumnsFrom(overrides map[string]string) Columns {
	c := DefaultColumns()
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(overrides[key]); v != "" {
			*dst = v
		}
	}
	set(&c.Dish, "dish")
	set(&c.Price, "price")
	set(&c.Ingredients, "ingredients")
	set(&c.Category, "category")
	set(&c.Code, "code")
	set(&c.Label, "label")
	set(&c.DishName, "dish_name")
	set(&c.Allergens, "allergens")
	return c
}

// Load reads the menu, the allergen list and the dish/allergen mapping.
func Load(cfg config.MenuConfig) ([]models.Dish, models.AllergenTable, error) {
	cols := ColumnsFrom(cfg.Columns)

	menuRows, err := ReadTable(cfg.MenuFile)
	if err != nil {
		return nil, nil, err
	}
	allergenRows, err := ReadTable(cfg.AllergensFile)
	if err != nil {
		return nil, nil, err
	}
	dishAllergenRows, err := ReadTable(cfg.DishAllergensFile)
	if err != nil {
		return nil, nil, err
	}

	table := LoadAllergens(allergenRows, cols)
	dishes := LoadDishes(menuRows, LoadDishAllergens(dishAllergenRows, cols), cols)
	log.Debug().Int("dishes", len(dishes)).Int("allergens", len(table)).Msg("Loaded menu tables")
	return dishes, table, nil
}

func LoadAllergens(rows []Row, cols Columns) models.AllergenTable {
	table := make(models.AllergenTable, len(rows))
	for _, row := range rows {
		code := strings.TrimSpace(row[cols.Code])
		if code == "" {
			continue
		}
		table[code] = strings.TrimSpace(row[cols.Label])
	}
	return table
}

// LoadDishAllergens maps a dish name to its allergen codes. The first row of a dish wins.
func LoadDishAllergens(rows []Row, cols Columns) map[string][]string {
	byDish := make(map[string][]string, len(rows))
	for _, row := range rows {
		name := row[cols.DishName]
		if _, seen := byDish[name]; seen {
			continue
		}
		codes := []string{}
		for _, code := range strings.Split(row[cols.Allergens], ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, code)
			}
		}
		byDish[name] = codes
	}
	return byDish
}

func LoadDishes(rows []Row, dishAllergens map[string][]string, cols Columns) []models.Dish {
	dishes := make([]models.Dish, 0, len(rows))
	for _, row := range rows {
		d := models.Dish{
			Name:        row[cols.Dish],
			Category:    row[cols.Category],
			Price:       row[cols.Price],
			Ingredients: row[cols.Ingredients],
		}
		d.AllergenCodes, d.HasAllergenRow = dishAllergens[d.Name]
		dishes = append(dishes, d)
	}
	return dishes
}

// ResolveAllergens turns the dish's codes into labels.
func ResolveAllergens(d models.Dish, table models.AllergenTable) string {
	if !d.HasAllergenRow || len(d.AllergenCodes) == 0 {
		return models.AllergensUnspecified
	}
	labels := make([]string, 0, len(d.AllergenCodes))
	for _, code := range d.AllergenCodes {
		label, ok := table[code]
		if !ok {
			label = fmt.Sprintf(models.UnknownCodeFormat, code)
		}
		labels = append(labels, label)
	}
	return strings.Join(labels, ", ")
}

// FormatDish flattens a dish into the text block that gets embedded.
func FormatDish(d models.Dish, table models.AllergenTable) string {
	return fmt.Sprintf(models.DishTemplate, d.Name, d.Category, d.Price, d.Ingredients, ResolveAllergens(d, table))
}

// Chunks builds one chunk per dish, in menu order.
func Chunks(dishes []models.Dish, table models.AllergenTable) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(dishes))
	for i, d := range dishes {
		chunks = append(chunks, models.Chunk{
			Content:    FormatDish(d, table),
			PageNumber: 1,
			ChunkID:    i + 1,
			Metadata: map[string]string{
				models.MetaSource:   "menu",
				models.MetaDish:     d.Name,
				models.MetaCategory: d.Category,
			},
		})
	}
	return chunks
}
