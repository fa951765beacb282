package models

const (
	ColMenuDish        = "Plat"
	ColMenuPrice       = "Prix (€)"
	ColMenuIngredients = "Ingrédients"
	ColMenuCategory    = "Catégorie"

	ColAllergenCode  = "Code"
	ColAllergenLabel = "Allergène"

	ColDishName      = "Dish"
	ColDishAllergens = "Allergens"

	AllergensUnspecified = "Non spécifié"
	UnknownCodeFormat    = "Code inconnu %s"

	MetaSource         = "source"
	MetaDish           = "dish"
	MetaCategory       = "category"
	MetaPage           = "page"
	MetaChunkID        = "chunk_id"
	MetaEmbeddingModel = "embedding_model"

	ContextSeparator = "\n"
)

const DishTemplate = `Nom du plat : %s
Catégorie : %s
Prix : %s €
Ingrédients : %s
Allergènes : %s
`

// Prompt templates use text/template syntax with .context and .question.
var PromptTemplates = map[string]string{
	"simple": SimplePromptTemplate,
	"menu":   MenuPromptTemplate,
	"course": CoursePromptTemplate,
}

const SimplePromptTemplate = `

En te basant uniquement sur le context
{{.context}}

Question: {{.question}}
`

const MenuPromptTemplate = `Tu es l'assistant de la pizzeria. Chaque élément du contexte décrit un plat du menu :
son nom, sa catégorie (Pasta, Pizza, Risotto, Antipasti, Dolci ou Insalata), son prix en euros,
la liste de ses ingrédients puis les allergènes qu'il contient.
Quand on te demande une recette, ou une liste d'ingrédients, n'utilise que les plats du contexte.
Le prix est toujours spécifié après la catégorie. Les ingrédients sont toujours spécifiés après le prix.
"Non spécifié" signifie que les allergènes de ce plat ne sont pas connus : dis-le clairement.

Les allergènes sont numérotés ainsi :
CÉRÉALES OU GLUTEN 1
CRUSTACÉS 2
ŒUFS 3
POISSONS 4
ARACHIDES 5
SOJA 6
LAIT 7
FRUITS À COQUE 8
(amandes, noisettes, noix, noix de cajou, noix de pécan, noix du Brésil, noix de macadamia,
pistaches, pignons de pin)
CÉLERI 9
MOUTARDE 10
GRAINE DE SÉSAME 11
ANHYDRIDES SULFUREUX SULFITES 12
MOLLUSQUES 13
LUPIN 14

En te basant uniquement sur le context
{{.context}}

Question: {{.question}}
`

const CoursePromptTemplate = `Tu as 2 fichiers. Dans le Menu.pdf tu trouveras des listes d'ingrédients de plats Pasta, Pizza, Risotto, Antipasti, Dolci et Insalata.
Quand on te demande une recette, ou une liste d'ingrédients, n'utilise que des chunks du fichier Menu.pdf .
Le prix est toujours spécifié après le nom de la recette. Les listes d'ingrédients sont toujours spécifiés après les prix.
Par exemple, le prix de la recette Quattro Formaggi est 14.10€.
La recette de la Pizza Quattro Formaggi contient "Mozzarella, gorgonzola, chèvre, burrata, roquette,noisettes torrefiées et crème.

Dans le fichier Liste_allergenes.pdf, chaque allergène correspond à un numéro et les chiffres
en bout de ligne d'une recette correspondent aux allergènes présents dans la recette.

--- Contexte ---
{{.context}}
--- Fin du Contexte ---

Question: {{.question}}
`
