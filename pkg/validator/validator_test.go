package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type indexConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=milvus qdrant"`
	Name    string `mapstructure:"name" validate:"notblank"`
	TopK    int    `mapstructure:"top-k" validate:"gte=1"`
}

func TestStructValid(t *testing.T) {
	assert.Nil(t, Struct(&indexConfig{Backend: "milvus", Name: "medical-chatbot", TopK: 3}))
}

func TestStructErrorsUseConfigKeys(t *testing.T) {
	errs := Struct(&indexConfig{Backend: "pinecone", Name: "  ", TopK: 0})
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Error(), "backend")
	assert.Equal(t, "name must not be blank", errs[1].Error())
	assert.Contains(t, errs[2].Error(), "top-k")
}

func TestStructWithLangChinese(t *testing.T) {
	v := StructWithLang(&indexConfig{Backend: "milvus", Name: "", TopK: 1}, LangZH)
	require.True(t, v.HasErrors())
	assert.Equal(t, []string{"name不能为空白"}, v.Messages())
	assert.Equal(t, "indexConfig.name", v.Errors[0].Field)
	assert.Contains(t, v.Error(), "validation failed")
}

func TestUnknownLanguageFallsBackToEnglish(t *testing.T) {
	v := StructWithLang(&indexConfig{Backend: "milvus", Name: "", TopK: 1}, "fr")
	require.True(t, v.HasErrors())
	assert.Equal(t, "name must not be blank", v.Errors[0].Message)
}
