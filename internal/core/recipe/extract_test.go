package recipe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_FencedWithProse(t *testing.T) {
	doc, err := Extract("Sure! ```json\n{\"recipes\":[{\"name\":\"Soup\"}]}\n``` Enjoy!")

	require.NoError(t, err)
	require.Len(t, doc.Recipes, 1)
	assert.Equal(t, Text("Soup"), doc.Recipes[0].Name)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"no brace", "I cannot help with that.", ErrNoJSONFound},
		{"empty", "", ErrNoJSONFound},
		{"inverted braces", "} oops {", ErrNoJSONFound},
		{"only open brace", "here { it is", ErrNoJSONFound},
		{"malformed", `{"recipes": [ {"name": "Soup",} ]}`, ErrMalformedJSON},
		{"two objects", `{"recipes": []} and also {"recipes": []}`, ErrMalformedJSON},
		{"missing recipes", `{"dishes": []}`, ErrSchemaMismatch},
		{"recipes not array", `{"recipes": {"name": "Soup"}}`, ErrSchemaMismatch},
		{"recipes null", `{"recipes": null}`, ErrSchemaMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Extract(tt.raw)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtract_NewlinesInsideStrings(t *testing.T) {
	raw := "{\"recipes\":[{\"name\":\"Fried\nRice\",\"steps\":[\"Heat pan\",\"Add\r\nrice\"]}]}"

	doc, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, Text("Fried Rice"), doc.Recipes[0].Name)
	assert.Equal(t, []string{"Heat pan", "Add rice"}, doc.Recipes[0].Steps.Strings())
}

func TestExtract_LooseFieldTypes(t *testing.T) {
	raw := `{"recipes":[{
		"name": "Omelette",
		"time": 15,
		"servings": "2 people",
		"difficulty": "Super easy",
		"ingredients": [{"name": "egg", "amount": 2}, "salt"],
		"steps": "Whisk and fry"
	}]}`

	doc, err := Extract(raw)
	require.NoError(t, err)
	r := doc.Recipes[0]
	assert.Equal(t, Text("15"), r.Time)
	assert.Equal(t, 2, r.Servings.N)
	assert.False(t, r.KnownDifficulty())
	assert.Equal(t, []string{`{"name":"egg","amount":2}`, "salt"}, r.Ingredients.Strings())
	assert.Equal(t, []string{"Whisk and fry"}, r.Steps.Strings())
}

func TestExtract_AcceptsAnyRecipeEntry(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		servings Servings
	}{
		{"boolean servings", `{"recipes":[{"name":"Soup","servings":true}]}`, Servings{Text: "true"}},
		{"range servings", `{"recipes":[{"name":"Soup","servings":{"min":2,"max":4}}]}`, Servings{Text: `{"min":2,"max":4}`}},
		{"array servings", `{"recipes":[{"name":"Soup","servings":[2]}]}`, Servings{Text: "[2]"}},
		{"entry not object", `{"recipes":["Soup"]}`, Servings{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Extract(tt.raw)
			require.NoError(t, err)
			require.Len(t, doc.Recipes, 1)
			assert.Equal(t, tt.servings, doc.Recipes[0].Servings)

			// 原文原樣輸出
			out, err := json.Marshal(doc)
			require.NoError(t, err)
			assert.JSONEq(t, tt.raw, string(out))
		})
	}
}

func TestExtract_StepOrderPreserved(t *testing.T) {
	doc, err := Extract(`{"recipes":[{"name":"Tea","steps":["boil","steep","pour","drink"]}]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"boil", "steep", "pour", "drink"}, doc.Recipes[0].Steps.Strings())
}

func TestDocument_MarshalVerbatim(t *testing.T) {
	doc, err := Extract(`prefix {"recipes":[{"name":"Soup","servings":2,"chef_note":"extra"}],"source":"llm"} suffix`)
	require.NoError(t, err)

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recipes":[{"name":"Soup","servings":2,"chef_note":"extra"}],"source":"llm"}`, string(out))
}

func TestDocument_MarshalWithoutRaw(t *testing.T) {
	out, err := json.Marshal(Document{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"recipes":[]}`, string(out))

	out, err = json.Marshal(Document{Recipes: []Recipe{{Name: "Soup", Servings: Servings{N: 2}, Steps: TextList{"a"}}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"recipes":[{"name":"Soup","description":"","time":"","servings":2,"difficulty":"","ingredients":null,"steps":["a"]}]}`, string(out))
}

func TestRecipe_Validate(t *testing.T) {
	ok := Recipe{Name: "Soup", Servings: Servings{N: 2}, Steps: TextList{"boil"}}
	assert.NoError(t, ok.Validate())

	noName := ok
	noName.Name = " "
	assert.Error(t, noName.Validate())

	zeroServings := ok
	zeroServings.Servings = Servings{Text: "a few"}
	assert.Error(t, zeroServings.Validate())

	noSteps := ok
	noSteps.Steps = nil
	assert.Error(t, noSteps.Validate())
}
