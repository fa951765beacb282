package models

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content    string
	PageNumber int
	ChunkID    int
	Metadata   map[string]string
}

// Document is a chunk paired with its embedding, ready for the vector store.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Match is a stored document returned by a similarity search.
type Match struct {
	ID         string
	Content    string
	Metadata   map[string]string
	Similarity float32
}

// Dish is one row of the menu joined with its allergen codes.
type Dish struct {
	Name          string
	Category      string
	Price         string
	Ingredients   string
	AllergenCodes []string
	// HasAllergenRow is false when the dish is absent from the dish/allergen table.
	HasAllergenRow bool
}

// AllergenTable maps an allergen code to its label.
type AllergenTable map[string]string

type Turn struct {
	Question string
	Answer   string
}

type PromptResponse struct {
	Query   string
	Source  string
	Content string
	Matches []Match
}
